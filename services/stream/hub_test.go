package streamsvc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/afyafund/afyafund/core/donation"
	testutil "github.com/afyafund/afyafund/tests"
)

func receive(t *testing.T, c *Client) DonationAlert {
	t.Helper()
	select {
	case data := <-c.Send:
		var alert DonationAlert
		if err := json.Unmarshal(data, &alert); err != nil {
			t.Fatalf("unmarshalling alert: %v", err)
		}
		return alert
	case <-time.After(time.Second):
		t.Fatal("no alert received")
		return DonationAlert{}
	}
}

func TestHub_DonationCompleted(t *testing.T) {
	hub := NewHub(testutil.NopLogger{})
	go hub.Run()

	watcher := hub.NewClient(nil, "cause1")
	otherWatcher := hub.NewClient(nil, "cause2")
	hub.Register(watcher)
	hub.Register(otherWatcher)

	hub.DonationCompleted(donation.Donation{
		CauseID:   "cause1",
		DonorName: "Neema",
		Amount:    50_00,
		Currency:  "IDR",
		Message:   "Get well soon",
	})

	alert := receive(t, watcher)
	if alert.CauseID != "cause1" || alert.DonorName != "Neema" || alert.Amount != 50_00 {
		t.Errorf("alert = %+v", alert)
	}

	// the other cause's watcher hears nothing
	select {
	case data := <-otherWatcher.Send:
		t.Errorf("unexpected alert: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(testutil.NopLogger{})
	go hub.Run()

	watcher := hub.NewClient(nil, "cause1")
	hub.Register(watcher)
	hub.Unregister(watcher)

	// the send channel is closed so the write pump drains and exits
	select {
	case _, ok := <-watcher.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
