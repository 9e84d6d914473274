package api

type (
	// TxID identifies a transaction awaiting consensus
	TxID string

	// VoteStatus is the result of submitting one approval vote
	VoteStatus string
)

const (
	// VoteAccepted means the vote was counted but the threshold has not
	// been reached yet
	VoteAccepted VoteStatus = "accepted"

	// VoteApproved means this vote reached the threshold and released the
	// waiting transaction
	VoteApproved VoteStatus = "approved"

	// VoteNotWaiting means no transaction with that id is awaiting
	// consensus; the vote is rejected, never counted against a future wait
	VoteNotWaiting VoteStatus = "not-waiting"

	// VoteDuplicate means the approver already voted on this transaction
	// and the distinct-approver policy is in force
	VoteDuplicate VoteStatus = "duplicate"
)
