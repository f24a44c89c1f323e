package event

import (
	"testing"
	"time"

	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

var testRef = entity.RequestRef{Kind: entity.KindPurchase, Owner: "kim@corp.example", ID: "r-1"}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"created", TypeRequestCreated, true},
		{"approved", TypeRequestApproved, true},
		{"finalized", TypeRequestFinalized, true},
		{"rejected", TypeRequestRejected, true},
		{"cancelled", TypeRequestCancelled, true},
		{"reminder", TypeRequestReminder, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != 6 {
		t.Fatalf("Types() returned %d types, want 6", len(types))
	}
	for _, typ := range types {
		if !typ.IsValid() {
			t.Errorf("Types() includes invalid type %q", typ)
		}
	}
}

func TestNewEvent(t *testing.T) {
	targets := []string{"lee@corp.example"}
	e := NewEvent(TypeRequestApproved, testRef, "park@corp.example", targets, "awaits you")

	if e.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if e.CorrelationID != e.ID {
		t.Errorf("CorrelationID = %v, want the event ID", e.CorrelationID)
	}
	if e.Link != testRef.Link() {
		t.Errorf("Link = %v, want %v", e.Link, testRef.Link())
	}
	if e.Request != testRef {
		t.Errorf("Request = %v, want %v", e.Request, testRef)
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}

	targets[0] = "changed"
	if e.Targets[0] != "lee@corp.example" {
		t.Error("Event must not alias the caller's target slice")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRequestFinalized, testRef, "a", nil, "").WithPayload(PayloadTitle, "Monitors")
	modified := original.WithPayload(PayloadDays, 2.5)

	if _, exists := original.Payload[PayloadDays]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.GetPayloadString(PayloadTitle) != "Monitors" {
		t.Error("Modified event should retain original payload")
	}
	if modified.GetPayloadFloat(PayloadDays) != 2.5 {
		t.Error("Modified event should have new payload")
	}
	if modified.ID != original.ID {
		t.Error("Modified event should have same ID")
	}
}

func TestEvent_WithCorrelation(t *testing.T) {
	first := NewEvent(TypeRequestCreated, testRef, "a", nil, "")
	second := NewEvent(TypeRequestApproved, testRef, "b", nil, "").WithCorrelation(first.CorrelationID)

	if second.CorrelationID != first.CorrelationID {
		t.Error("Second event should share the correlation ID")
	}
	if second.ID == first.ID {
		t.Error("Events should have unique IDs even with same correlation ID")
	}
}

func TestEvent_PayloadAccessors(t *testing.T) {
	e := NewEvent(TypeRequestCreated, testRef, "a", nil, "").
		WithPayload("s", "x").
		WithPayload("i", 3).
		WithPayload("i64", int64(4))

	if e.GetPayloadString("i") != "" {
		t.Error("non-string value should read as empty")
	}
	if e.GetPayloadString("missing") != "" {
		t.Error("missing key should read as empty")
	}
	if e.GetPayloadFloat("i") != 3 || e.GetPayloadFloat("i64") != 4 {
		t.Error("integer payloads should convert to float")
	}
	if e.GetPayloadFloat("s") != 0 {
		t.Error("non-numeric value should read as zero")
	}
}

func TestEvent_NotificationType(t *testing.T) {
	tests := []struct {
		eventType Type
		want      entity.NotificationType
	}{
		{TypeRequestCreated, entity.NotificationApprovalRequest},
		{TypeRequestApproved, entity.NotificationApprovalRequest},
		{TypeRequestFinalized, entity.NotificationApproved},
		{TypeRequestRejected, entity.NotificationRejected},
		{TypeRequestCancelled, entity.NotificationCancelled},
		{TypeRequestReminder, entity.NotificationReminder},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			e := NewEvent(tt.eventType, testRef, "a", nil, "")
			if got := e.NotificationType(); got != tt.want {
				t.Errorf("NotificationType() = %v, want %v", got, tt.want)
			}
		})
	}
}
