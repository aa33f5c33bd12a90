package event

import (
	"reflect"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func validEvent() events.SimpleEmailEvent {
	return events.SimpleEmailEvent{
		Records: []events.SimpleEmailRecord{
			{
				EventSource:  "aws:ses",
				EventVersion: "1.0",
				SES: events.SimpleEmailService{
					Mail: events.SimpleEmailMessage{MessageID: "msg-123"},
					Receipt: events.SimpleEmailReceipt{
						Recipients: []string{"info@x.com", "sales@x.com"},
					},
				},
			},
		},
	}
}

func TestFromSESEvent_Valid(t *testing.T) {
	t.Parallel()

	rec, err := FromSESEvent(validEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.MessageID != "msg-123" {
		t.Errorf("MessageID: got %q, want %q", rec.MessageID, "msg-123")
	}
	want := []string{"info@x.com", "sales@x.com"}
	if !reflect.DeepEqual(rec.Recipients, want) {
		t.Errorf("Recipients: got %v, want %v", rec.Recipients, want)
	}
}

func TestFromSESEvent_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*events.SimpleEmailEvent)
	}{
		{"no records", func(ev *events.SimpleEmailEvent) {
			ev.Records = nil
		}},
		{"two records", func(ev *events.SimpleEmailEvent) {
			ev.Records = append(ev.Records, ev.Records[0])
		}},
		{"wrong source", func(ev *events.SimpleEmailEvent) {
			ev.Records[0].EventSource = "aws:sns"
		}},
		{"wrong version", func(ev *events.SimpleEmailEvent) {
			ev.Records[0].EventVersion = "2.0"
		}},
		{"missing message id", func(ev *events.SimpleEmailEvent) {
			ev.Records[0].SES.Mail.MessageID = ""
		}},
		{"no recipients", func(ev *events.SimpleEmailEvent) {
			ev.Records[0].SES.Receipt.Recipients = nil
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ev := validEvent()
			tc.mutate(&ev)

			if _, err := FromSESEvent(ev); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
