package delivery

import (
	"testing"
	"time"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
	"github.com/sparkmeet/sparkmeet-backend/pkg/enums"
)

func prefAllOn(quietStart, quietEnd int) *models.NotificationPreference {
	return &models.NotificationPreference{
		PushEnabled:      true,
		EmailEnabled:     true,
		InAppEnabled:     true,
		MatchEnabled:     true,
		MessageEnabled:   true,
		LikeEnabled:      true,
		SystemEnabled:    true,
		QuietStartMinute: &quietStart,
		QuietEndMinute:   &quietEnd,
		DigestOptIn:      true,
	}
}

func atClock(hour, minute int) time.Time {
	return time.Date(2026, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestDecideQuietWindowWrapsMidnight(t *testing.T) {
	pref := prefAllOn(1320, 480) // 22:00-08:00

	cases := []struct {
		name   string
		now    time.Time
		action Action
	}{
		{"before window", atClock(21, 59), ActionDeliver},
		{"at window start", atClock(22, 0), ActionDefer},
		{"just before midnight", atClock(23, 59), ActionDefer},
		{"after midnight", atClock(3, 0), ActionDefer},
		{"just before window end", atClock(7, 59), ActionDefer},
		{"at window end", atClock(8, 0), ActionDeliver},
		{"midday", atClock(12, 30), ActionDeliver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(pref, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelPush, tc.now)
			if decision.Action != tc.action {
				t.Fatalf("at %s expected %s, got %s", tc.now.Format("15:04"), tc.action, decision.Action)
			}
		})
	}
}

func TestDecideDeferTargetsWindowEnd(t *testing.T) {
	pref := prefAllOn(1320, 480)

	// Late evening defers to 08:00 the next day.
	decision := Decide(pref, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelEmail, atClock(23, 15))
	want := time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)
	if !decision.DeferUntil.Equal(want) {
		t.Fatalf("expected defer until %s, got %s", want, decision.DeferUntil)
	}

	// Early morning defers to 08:00 the same day.
	decision = Decide(pref, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelEmail, atClock(6, 30))
	want = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	if !decision.DeferUntil.Equal(want) {
		t.Fatalf("expected defer until %s, got %s", want, decision.DeferUntil)
	}
}

func TestDecideQuietHoursFollowUserZone(t *testing.T) {
	pref := prefAllOn(1320, 480)
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	// 03:00 UTC on June 1st is 23:00 EDT on May 31st: inside the window.
	now := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	decision := Decide(pref, loc, enums.NotificationTypeMessage, enums.NotificationPriorityNormal, enums.ChannelPush, now)
	if decision.Action != ActionDefer {
		t.Fatalf("expected defer in user's local night, got %s", decision.Action)
	}
	wantLocal := time.Date(2026, 6, 1, 8, 0, 0, 0, loc)
	if !decision.DeferUntil.Equal(wantLocal) {
		t.Fatalf("expected defer until %s, got %s", wantLocal, decision.DeferUntil)
	}

	// 16:00 UTC is midday in New York.
	decision = Decide(pref, loc, enums.NotificationTypeMessage, enums.NotificationPriorityNormal, enums.ChannelPush, atClock(16, 0))
	if decision.Action != ActionDeliver {
		t.Fatalf("expected deliver at local midday, got %s", decision.Action)
	}
}

func TestDecideHighPriorityBypassesQuietHours(t *testing.T) {
	pref := prefAllOn(1320, 480)

	decision := Decide(pref, time.UTC, enums.NotificationTypeMatch, enums.NotificationPriorityHigh, enums.ChannelPush, atClock(23, 0))
	if decision.Action != ActionDeliver {
		t.Fatalf("expected high priority to deliver, got %s", decision.Action)
	}
}

func TestDecideInAppNeverDeferred(t *testing.T) {
	pref := prefAllOn(1320, 480)

	decision := Decide(pref, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelInApp, atClock(23, 0))
	if decision.Action != ActionDeliver {
		t.Fatalf("expected in-app to deliver during quiet hours, got %s", decision.Action)
	}
}

func TestDecideSuppressions(t *testing.T) {
	muted := prefAllOn(0, 0)
	muted.LikeEnabled = false
	decision := Decide(muted, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityHigh, enums.ChannelPush, atClock(12, 0))
	if decision.Action != ActionSuppress {
		t.Fatalf("expected muted type to suppress, got %s", decision.Action)
	}

	noPush := prefAllOn(0, 0)
	noPush.PushEnabled = false
	decision = Decide(noPush, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelPush, atClock(12, 0))
	if decision.Action != ActionSuppress {
		t.Fatalf("expected disabled channel to suppress, got %s", decision.Action)
	}

	decision = Decide(nil, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelPush, atClock(12, 0))
	if decision.Action != ActionSuppress {
		t.Fatalf("expected nil preferences to suppress, got %s", decision.Action)
	}
}

func TestDecideEqualBoundsDisableWindow(t *testing.T) {
	pref := prefAllOn(480, 480)

	decision := Decide(pref, time.UTC, enums.NotificationTypeLike, enums.NotificationPriorityNormal, enums.ChannelPush, atClock(8, 0))
	if decision.Action != ActionDeliver {
		t.Fatalf("expected degenerate window to deliver, got %s", decision.Action)
	}
}
