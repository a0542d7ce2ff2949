package domain

const (
	RoleStudent = "STUDENT"
	RoleTutor   = "TUTOR"
	RoleAdmin   = "ADMIN"
)

// Ledger entry types. Credit, refund and earning add to the tracked balance; debit subtracts.
const (
	TxTypeCredit  = "credit"
	TxTypeDebit   = "debit"
	TxTypeEarning = "earning"
	TxTypeRefund  = "refund"
)

const (
	TxReasonAddFunds          = "add_funds"
	TxReasonBookTutor         = "book_tutor"
	TxReasonPostAssignment    = "post_assignment"
	TxReasonAITutor           = "ai_tutor"
	TxReasonProposalAccepted  = "proposal_accepted"
	TxReasonProposalCompleted = "proposal_completed"
	TxReasonWithdrawal        = "withdrawal"
	TxReasonRefund            = "refund"
	TxReasonAdminAdjustment   = "admin_adjustment"
)

// ChargeReasons are the reasons a caller may pass to DeductFunds.
var ChargeReasons = []string{TxReasonBookTutor, TxReasonPostAssignment, TxReasonAITutor}

const (
	TxStatusPending   = "PENDING"
	TxStatusApproved  = "APPROVED"
	TxStatusWithdrawn = "WITHDRAWN"
	TxStatusRejected  = "REJECTED"
)

// Balance buckets a ledger row's before/after pair can track.
const (
	BucketWallet  = "wallet"
	BucketPending = "pending"
)

const (
	WithdrawalRequested = "REQUESTED"
	WithdrawalCompleted = "COMPLETED"
	WithdrawalRejected  = "REJECTED"
)

const (
	SessionActive    = "ACTIVE"
	SessionCompleted = "COMPLETED"
)

const (
	FundingPrepaid = "prepaid"
	FundingMetered = "metered"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

const (
	SubjectMath            = "MATH"
	SubjectPhysics         = "PHYSICS"
	SubjectChemistry       = "CHEMISTRY"
	SubjectBiology         = "BIOLOGY"
	SubjectEnglish         = "ENGLISH"
	SubjectHistory         = "HISTORY"
	SubjectComputerScience = "COMPUTER_SCIENCE"
	SubjectEconomics       = "ECONOMICS"
	SubjectGeneral         = "GENERAL"
)

const (
	EventBookingLapsed = "booking_lapsed"
	EventSessionEnded  = "session_ended"
)
