package conversation

import "context"

// queueClient is the transport behind the dispatcher. groupID carries the
// phone number so FIFO transports can serialize turns per conversation.
type queueClient interface {
	Send(ctx context.Context, body string, groupID string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeMessage jobType = "message"

type queuePayload struct {
	ID      string         `json:"id"`
	Kind    jobType        `json:"kind"`
	Message MessageRequest `json:"message"`
}
