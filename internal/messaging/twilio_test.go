package messaging

import (
	"context"
	"testing"
)

func TestCanonicalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (416) 555-0199", "14165550199", false},
		{"whatsapp:+14165550199", "14165550199", false},
		{"14165550199", "14165550199", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tc := range cases {
		got, err := canonicalizePhoneNumber(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhoneNumber(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhoneNumber(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("canonicalizePhoneNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewTwilioServiceRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewTwilioService(); err == nil {
		t.Fatal("NewTwilioService without credentials should fail")
	}
	if _, err := NewTwilioService(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Fatal("NewTwilioService without from number should fail")
	}
	if _, err := NewTwilioService(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("whatsapp:+14165550199")); err != nil {
		t.Fatalf("NewTwilioService with full config failed: %v", err)
	}
}

func TestMockServiceRecordsMessages(t *testing.T) {
	m := NewMockService()
	if err := m.SendMessage(context.Background(), "+14165550199", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(m.SentMessages) != 1 || m.SentMessages[0].Body != "hello" {
		t.Errorf("SentMessages = %v", m.SentMessages)
	}
}
