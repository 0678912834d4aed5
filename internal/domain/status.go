package domain

// Status classifies one work with respect to post-publication notices.
// The zero value is StatusOK.
type Status int

const (
	StatusOK Status = iota
	StatusUnknown
	StatusNoDOI
	StatusCorrected
	StatusExpressionOfConcern
	StatusWithdrawn
	StatusRetracted
)

// Severity orders statuses from benign to severe. StatusUnknown and
// StatusNoDOI share a severity but stay distinct reasons: provider failure
// versus absent identifier.
func (s Status) Severity() int {
	switch s {
	case StatusOK:
		return 0
	case StatusUnknown, StatusNoDOI:
		return 1
	case StatusCorrected:
		return 3
	case StatusExpressionOfConcern, StatusWithdrawn:
		return 4
	case StatusRetracted:
		return 5
	}
	return 0
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknown:
		return "unknown"
	case StatusNoDOI:
		return "no_doi"
	case StatusCorrected:
		return "corrected"
	case StatusExpressionOfConcern:
		return "expression_of_concern"
	case StatusWithdrawn:
		return "withdrawn"
	case StatusRetracted:
		return "retracted"
	}
	return "ok"
}

// Source identifies one provider family. The numeric order is the fixed
// order evidence is reported in, independent of which adapter answers first.
type Source int

const (
	SourceIndex Source = iota
	SourceSelfFlag
	SourceRegistrar
	SourceRecordType
	SourceLanding
)

func (s Source) String() string {
	switch s {
	case SourceIndex:
		return "retraction-index"
	case SourceSelfFlag:
		return "self-reported"
	case SourceRegistrar:
		return "registrar-feed"
	case SourceRecordType:
		return "record-type-feed"
	case SourceLanding:
		return "landing-page"
	}
	return "unknown-source"
}

// SourceVerdict is one provider's opinion about one DOI. Ephemeral: produced
// and consumed within a single classification.
type SourceVerdict struct {
	Source   Source
	Status   Status
	Evidence string
}
