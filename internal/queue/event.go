// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer for them.
package queue

// OwnerInvitedQueue is the durable queue carrying owner invitations.
const OwnerInvitedQueue = "owner.invited"

// OwnerInvitedEvent is published once per owner when a salon is created.
// It carries enough for the mailer to address the owner and build the
// set-password link without querying the primary database.
type OwnerInvitedEvent struct {
    InvitationID string `json:"invitation_id"`
    SalonID      string `json:"salon_id"`
    SalonName    string `json:"salon_name"`
    PrincipalID  string `json:"principal_id"`
    Email        string `json:"email"`
    FirstName    string `json:"first_name"`
    LastName     string `json:"last_name"`
    InvitedAt    string `json:"invited_at"`
}
