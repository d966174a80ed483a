package domain

import "time"

// RoomKey is one generation of a room's symmetric content key. Superseding a
// version never deletes it: messages sealed under an old version must stay
// readable for every member who received that version's grant.
type RoomKey struct {
	RoomID    RoomID       `json:"room_id"`
	Version   KeyVersion   `json:"version"`
	Key       SymmetricKey `json:"key"`
	CreatedAt time.Time    `json:"created_at"`
}

// EncryptedRoomKeyGrant is a room key wrapped for exactly one recipient. It
// is produced by a current key holder, consumed once by the recipient to
// populate their local cache, and may be replayed safely: applying the same
// grant twice is a no-op. The server stores it without being able to open it.
type EncryptedRoomKeyGrant struct {
	RoomID          RoomID       `json:"room_id"`
	Version         KeyVersion   `json:"version"`
	RecipientID     UserID       `json:"recipient_id"`
	SenderPublicKey X25519Public `json:"sender_public_key"`
	Nonce           Nonce        `json:"nonce"`
	WrappedKey      []byte       `json:"wrapped_key"`
}

// EncryptedMessage is a sealed message body plus the metadata needed to open
// it. KeyVersion references a room key the sender held at send time; a
// receiver that never got that version's grant surfaces a decryption gap
// rather than guessing. Immutable once created.
type EncryptedMessage struct {
	RoomID     RoomID     `json:"room_id"`
	SenderID   UserID     `json:"sender_id"`
	KeyVersion KeyVersion `json:"key_version"`
	Nonce      Nonce      `json:"nonce"`
	Ciphertext []byte     `json:"ciphertext"`
	CreatedAt  time.Time  `json:"created_at"`
}

// MembershipChange notifies that a member was removed from a room. Receipt
// obliges any remaining key holder to rotate the room key so the removed
// member cannot read future messages.
type MembershipChange struct {
	RoomID        RoomID `json:"room_id"`
	RemovedUserID UserID `json:"removed_user_id"`
}
