package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sealroom/internal/domain"
)

// Client is an HTTP relay client.
type Client struct {
	Base string
	HTTP *http.Client
}

// New returns a client for the relay at base.
func New(base string) *Client { return &Client{Base: base, HTTP: http.DefaultClient} }

// SendMessage posts one encrypted message for fan-out to the room.
func (c *Client) SendMessage(ctx context.Context, msg domain.EncryptedMessage) error {
	return c.post(ctx, "/messages", msg, nil)
}

// SendGrant posts one wrapped key grant for replay to its recipient.
func (c *Client) SendGrant(ctx context.Context, grant domain.EncryptedRoomKeyGrant) error {
	return c.post(ctx, "/grants", grant, nil)
}

// PublicKeyOf fetches a user's current identity public key from the relay's
// identity directory.
func (c *Client) PublicKeyOf(ctx context.Context, user domain.UserID) (domain.X25519Public, error) {
	var out struct {
		UserID    domain.UserID       `json:"user_id"`
		PublicKey domain.X25519Public `json:"public_key"`
	}
	if err := c.getJSON(ctx, "/identities/"+url.PathEscape(user.String()), &out); err != nil {
		return domain.X25519Public{}, err
	}
	return out.PublicKey, nil
}

// Members lists the current members of a room.
func (c *Client) Members(ctx context.Context, room domain.RoomID) ([]domain.UserID, error) {
	var out []domain.UserID
	if err := c.getJSON(ctx, "/rooms/"+url.PathEscape(room.String())+"/members", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterIdentity publishes the public half of the local identity under the
// given user id. The private half never leaves the device.
func (c *Client) RegisterIdentity(ctx context.Context, user domain.UserID, pub domain.X25519Public) error {
	return c.post(ctx, "/identities", struct {
		UserID    domain.UserID       `json:"user_id"`
		PublicKey domain.X25519Public `json:"public_key"`
	}{UserID: user, PublicKey: pub}, nil)
}

// FetchEnvelopes retrieves queued envelopes for the user, oldest first.
func (c *Client) FetchEnvelopes(ctx context.Context, user domain.UserID, limit int) ([]domain.Envelope, error) {
	path := "/queue/" + url.PathEscape(user.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckEnvelopes acknowledges the first count queued envelopes so the relay
// stops replaying them.
func (c *Client) AckEnvelopes(ctx context.Context, user domain.UserID, count int) error {
	return c.post(ctx, "/queue/"+url.PathEscape(user.String())+"/ack", struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var (
	_ domain.Delivery            = (*Client)(nil)
	_ domain.IdentityRegistry    = (*Client)(nil)
	_ domain.MembershipDirectory = (*Client)(nil)
)
