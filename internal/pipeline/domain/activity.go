package domain

// ActivityType is a kind of sales action recorded in the activity log.
// The set is closed; values outside the declared constants are rejected at
// the boundary.
type ActivityType string

const (
	ActivityPhoneCall            ActivityType = "PHONE_CALL"
	ActivityEmailSent            ActivityType = "EMAIL_SENT"
	ActivityEmailReceived        ActivityType = "EMAIL_RECEIVED"
	ActivityMeetingScheduled     ActivityType = "MEETING_SCHEDULED"
	ActivityMeetingCompleted     ActivityType = "MEETING_COMPLETED"
	ActivityPropertyShowing      ActivityType = "PROPERTY_SHOWING"
	ActivityProposalSent         ActivityType = "PROPOSAL_SENT"
	ActivityFollowUp             ActivityType = "FOLLOW_UP"
	ActivityDocumentReceived     ActivityType = "DOCUMENT_RECEIVED"
	ActivityApplicationSubmitted ActivityType = "APPLICATION_SUBMITTED"
	ActivityNegotiation          ActivityType = "NEGOTIATION"
	ActivityContractSent         ActivityType = "CONTRACT_SENT"
	ActivityContractSigned       ActivityType = "CONTRACT_SIGNED"
	ActivityPaymentReceived      ActivityType = "PAYMENT_RECEIVED"
	ActivityDealClosed           ActivityType = "DEAL_CLOSED"
	ActivityDealLost             ActivityType = "DEAL_LOST"
	ActivityNoteAdded            ActivityType = "NOTE_ADDED"
)

var knownActivityTypes = map[ActivityType]struct{}{
	ActivityPhoneCall:            {},
	ActivityEmailSent:            {},
	ActivityEmailReceived:        {},
	ActivityMeetingScheduled:     {},
	ActivityMeetingCompleted:     {},
	ActivityPropertyShowing:      {},
	ActivityProposalSent:         {},
	ActivityFollowUp:             {},
	ActivityDocumentReceived:     {},
	ActivityApplicationSubmitted: {},
	ActivityNegotiation:          {},
	ActivityContractSent:         {},
	ActivityContractSigned:       {},
	ActivityPaymentReceived:      {},
	ActivityDealClosed:           {},
	ActivityDealLost:             {},
	ActivityNoteAdded:            {},
}

// Known reports whether t is part of the fixed activity type set.
func (t ActivityType) Known() bool {
	_, ok := knownActivityTypes[t]
	return ok
}

// autoAdvanceTargets maps selected activity types to the stage they propose.
// Activity types without an entry never advance the pipeline.
var autoAdvanceTargets = map[ActivityType]Stage{
	ActivityPhoneCall:            StageContacted,
	ActivityEmailSent:            StageContacted,
	ActivityMeetingCompleted:     StageQualified,
	ActivityPropertyShowing:      StagePropertyViewing,
	ActivityProposalSent:         StageProposalSent,
	ActivityApplicationSubmitted: StageApplication,
	ActivityContractSent:         StageClosing,
	ActivityContractSigned:       StageClosing,
	ActivityDealClosed:           StageWon,
	ActivityDealLost:             StageLost,
}

// AutoAdvanceTarget returns the candidate stage proposed by logging an
// activity of type t, if any. The candidate is only applied when the
// transition graph accepts it from the current stage.
func AutoAdvanceTarget(t ActivityType) (Stage, bool) {
	target, ok := autoAdvanceTargets[t]
	return target, ok
}
