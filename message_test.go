package gomsg

import (
	"reflect"
	"testing"
)

func TestRecipientType_String(t *testing.T) {
	tests := []struct {
		name          string
		recipientType RecipientType
		want          string
	}{
		{
			name:          "to",
			recipientType: RecipientTo,
			want:          "To",
		},
		{
			name:          "cc",
			recipientType: RecipientCc,
			want:          "Cc",
		},
		{
			name:          "bcc",
			recipientType: RecipientBcc,
			want:          "Bcc",
		},
		{
			name:          "unknown",
			recipientType: RecipientUnknown,
			want:          "Unknown",
		},
		{
			name:          "out of range",
			recipientType: RecipientType(42),
			want:          "Unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.recipientType.String(); got != tt.want {
				t.Errorf("RecipientType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func recipientFilterMessage() *Message {
	return &Message{
		Recipients: []Recipient{
			{Person: Person{Name: "a", Email: "a@example.com"}, Type: RecipientTo},
			{Person: Person{Name: "b", Email: "b@example.com"}, Type: RecipientCc},
			{Person: Person{Name: "c", Email: "c@example.com"}, Type: RecipientTo},
			{Person: Person{Name: "d", Email: "d@example.com"}, Type: RecipientBcc},
			{Person: Person{Name: "e", Email: "e@example.com"}, Type: RecipientUnknown},
		},
	}
}

func TestMessage_To(t *testing.T) {
	message := recipientFilterMessage()
	want := []Recipient{
		{Person: Person{Name: "a", Email: "a@example.com"}, Type: RecipientTo},
		{Person: Person{Name: "c", Email: "c@example.com"}, Type: RecipientTo},
	}
	if got := message.To(); !reflect.DeepEqual(got, want) {
		t.Errorf("Message.To() = %v, want %v", got, want)
	}
}

func TestMessage_Cc(t *testing.T) {
	message := recipientFilterMessage()
	want := []Recipient{
		{Person: Person{Name: "b", Email: "b@example.com"}, Type: RecipientCc},
	}
	if got := message.Cc(); !reflect.DeepEqual(got, want) {
		t.Errorf("Message.Cc() = %v, want %v", got, want)
	}
}

func TestMessage_Bcc(t *testing.T) {
	message := recipientFilterMessage()
	want := []Recipient{
		{Person: Person{Name: "d", Email: "d@example.com"}, Type: RecipientBcc},
	}
	if got := message.Bcc(); !reflect.DeepEqual(got, want) {
		t.Errorf("Message.Bcc() = %v, want %v", got, want)
	}
}

func TestAttachment_Name(t *testing.T) {
	tests := []struct {
		name       string
		attachment Attachment
		want       string
	}{
		{
			name: "long filename wins",
			attachment: Attachment{
				Filename:     "REPORT~1.PDF",
				LongFilename: "quarterly report.pdf",
				Extension:    ".pdf",
			},
			want: "quarterly report.pdf",
		},
		{
			name: "short filename as fallback",
			attachment: Attachment{
				Filename:  "REPORT~1.PDF",
				Extension: ".pdf",
			},
			want: "REPORT~1.PDF",
		},
		{
			name: "generic name from the extension",
			attachment: Attachment{
				Extension: ".pdf",
			},
			want: "attachment.pdf",
		},
		{
			name:       "generic name without anything",
			attachment: Attachment{},
			want:       "attachment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.attachment.Name(); got != tt.want {
				t.Errorf("Attachment.Name() = %v, want %v", got, tt.want)
			}
		})
	}
}
