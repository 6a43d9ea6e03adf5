package domain

import "testing"

func TestAutoAdvanceTargets(t *testing.T) {
	cases := []struct {
		activity ActivityType
		target   Stage
		proposes bool
	}{
		{ActivityPhoneCall, StageContacted, true},
		{ActivityEmailSent, StageContacted, true},
		{ActivityMeetingCompleted, StageQualified, true},
		{ActivityPropertyShowing, StagePropertyViewing, true},
		{ActivityProposalSent, StageProposalSent, true},
		{ActivityApplicationSubmitted, StageApplication, true},
		{ActivityContractSent, StageClosing, true},
		{ActivityContractSigned, StageClosing, true},
		{ActivityDealClosed, StageWon, true},
		{ActivityDealLost, StageLost, true},
		{ActivityEmailReceived, "", false},
		{ActivityMeetingScheduled, "", false},
		{ActivityFollowUp, "", false},
		{ActivityDocumentReceived, "", false},
		{ActivityNegotiation, "", false},
		{ActivityPaymentReceived, "", false},
		{ActivityNoteAdded, "", false},
	}

	for _, tc := range cases {
		target, ok := AutoAdvanceTarget(tc.activity)
		if ok != tc.proposes {
			t.Errorf("AutoAdvanceTarget(%s) proposes = %v, want %v", tc.activity, ok, tc.proposes)
			continue
		}
		if ok && target != tc.target {
			t.Errorf("AutoAdvanceTarget(%s) = %s, want %s", tc.activity, target, tc.target)
		}
	}
}

func TestActivityTypeKnown(t *testing.T) {
	for at := range knownActivityTypes {
		if !at.Known() {
			t.Errorf("%s should be known", at)
		}
	}
	if ActivityType("CARRIER_PIGEON").Known() {
		t.Error("CARRIER_PIGEON should not be a known activity type")
	}
}

func TestEveryAutoAdvanceTargetIsAKnownStage(t *testing.T) {
	for activity, target := range autoAdvanceTargets {
		if !target.Known() {
			t.Errorf("auto-advance target of %s is unknown stage %q", activity, target)
		}
	}
}
