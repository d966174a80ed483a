package domain_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"sealroom/internal/domain"
)

func TestByteTypes_MarshalAsBase64Strings(t *testing.T) {
	var nonce domain.Nonce
	for i := range nonce {
		nonce[i] = byte(i)
	}

	data, err := json.Marshal(nonce)
	if err != nil {
		t.Fatalf("marshal nonce: %v", err)
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("nonce did not marshal as a JSON string: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("nonce string is not standard base64: %v", err)
	}
	if !bytes.Equal(raw, nonce.Slice()) {
		t.Fatalf("decoded %x, want %x", raw, nonce.Slice())
	}
}

func TestByteTypes_RoundTrip(t *testing.T) {
	var key domain.SymmetricKey
	for i := range key {
		key[i] = byte(0xA0 + i)
	}

	data, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got domain.SymmetricKey
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != key {
		t.Fatalf("round trip changed key: got %x, want %x", got, key)
	}
}

func TestByteTypes_RejectWrongLength(t *testing.T) {
	short, err := json.Marshal(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	var key domain.SymmetricKey
	if err := json.Unmarshal(short, &key); err == nil {
		t.Fatal("16-byte payload accepted into a 32-byte key")
	}
	var pub domain.X25519Public
	if err := json.Unmarshal(short, &pub); err == nil {
		t.Fatal("16-byte payload accepted into a 32-byte public key")
	}

	almost, err := json.Marshal(base64.StdEncoding.EncodeToString(make([]byte, 23)))
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	var nonce domain.Nonce
	if err := json.Unmarshal(almost, &nonce); err == nil {
		t.Fatal("23-byte payload accepted into a 24-byte nonce")
	}
}

func TestByteTypes_RejectMalformedJSON(t *testing.T) {
	var key domain.SymmetricKey
	if err := json.Unmarshal([]byte(`"%%% not base64 %%%"`), &key); err == nil {
		t.Fatal("invalid base64 accepted")
	}
	if err := json.Unmarshal([]byte(`42`), &key); err == nil {
		t.Fatal("non-string JSON value accepted")
	}
}

func TestGrantEnvelope_JSONRoundTrip(t *testing.T) {
	grant := domain.EncryptedRoomKeyGrant{
		RoomID:      "embassy",
		Version:     3,
		RecipientID: "bob",
		WrappedKey:  []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	for i := range grant.SenderPublicKey {
		grant.SenderPublicKey[i] = byte(i)
	}
	for i := range grant.Nonce {
		grant.Nonce[i] = byte(0xFF - i)
	}
	env := domain.NewGrantEnvelope(grant)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got domain.Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("round-tripped envelope failed validation: %v", err)
	}
	if got.Grant == nil {
		t.Fatal("grant record lost in transit")
	}
	if got.Grant.RoomID != grant.RoomID || got.Grant.Version != grant.Version ||
		got.Grant.RecipientID != grant.RecipientID ||
		got.Grant.SenderPublicKey != grant.SenderPublicKey ||
		got.Grant.Nonce != grant.Nonce ||
		!bytes.Equal(got.Grant.WrappedKey, grant.WrappedKey) {
		t.Fatalf("grant changed in transit: got %+v, want %+v", *got.Grant, grant)
	}
}

func TestMessageEnvelope_JSONRoundTrip(t *testing.T) {
	msg := domain.EncryptedMessage{
		RoomID:     "embassy",
		SenderID:   "alice",
		KeyVersion: 7,
		Ciphertext: []byte("opaque sealed bytes"),
		CreatedAt:  time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}
	for i := range msg.Nonce {
		msg.Nonce[i] = byte(i * 3)
	}
	env := domain.NewMessageEnvelope(msg)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got domain.Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("round-tripped envelope failed validation: %v", err)
	}
	if got.Message == nil {
		t.Fatal("message record lost in transit")
	}
	if got.Message.RoomID != msg.RoomID || got.Message.SenderID != msg.SenderID ||
		got.Message.KeyVersion != msg.KeyVersion ||
		got.Message.Nonce != msg.Nonce ||
		!bytes.Equal(got.Message.Ciphertext, msg.Ciphertext) ||
		!got.Message.CreatedAt.Equal(msg.CreatedAt) {
		t.Fatalf("message changed in transit: got %+v, want %+v", *got.Message, msg)
	}
}
