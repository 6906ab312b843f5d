package lifecycle

// Trigger represents an event that can cause a check status transition
type Trigger string

const (
	TriggerRedeem Trigger = "REDEEM"
	TriggerExpire Trigger = "EXPIRE"
	TriggerCancel Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
