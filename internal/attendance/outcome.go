package attendance

// Outcome is the classified result of one delivery attempt. It is one of
// Recorded, Conflict or Failed.
type Outcome interface {
	outcome()
}

// Recorded means the ledger stored the value.
type Recorded struct {
	PersonName string
	Time       string
}

// Conflict means the address already holds ExistingValue and the request
// did not carry Overwrite.
type Conflict struct {
	ExistingValue string
	Message       string
}

// FailureKind separates transport failures, which are retried by the
// offline queue, from rejections, which are not.
type FailureKind int

const (
	FailureRejected FailureKind = iota
	FailureNetwork
)

func (k FailureKind) String() string {
	if k == FailureNetwork {
		return "network_unavailable"
	}
	return "rejected"
}

// Failed carries the reason a delivery did not record a value.
type Failed struct {
	Kind   FailureKind
	Reason string
}

// NetworkUnavailable reports whether the failure was at the transport level.
func (f Failed) NetworkUnavailable() bool {
	return f.Kind == FailureNetwork
}

func (Recorded) outcome() {}
func (Conflict) outcome() {}
func (Failed) outcome()   {}
