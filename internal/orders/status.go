package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var validNextPayment = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:    {},
	PaymentFailed:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validNextPayment[from][to]
}
