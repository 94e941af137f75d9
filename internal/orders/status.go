package orders

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var known = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

// ParseStatus validates the status value only. Any known status may
// replace any other; transitions are deliberately unrestricted.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !known[st] {
		return "", fmt.Errorf("unknown order status: %q", s)
	}
	return st, nil
}
