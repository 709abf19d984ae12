package amqp

import "testing"

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage(OpUpsert, "m123-abcd")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Op != OpUpsert || got.ID != "m123-abcd" {
		t.Fatalf("unexpected message %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestChangeMessageRejectsUnknownOp(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte(`{"op":"truncate","id":"x"}`)); err == nil {
		t.Fatal("expected error for unknown op")
	}
	if _, err := ChangeMessageFromJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
