package domain

import "errors"

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrForbidden             = errors.New("user is not a conversation participant")
	ErrInvalidUserID         = errors.New("invalid user id")
	ErrNotEnoughParticipants = errors.New("conversation requires at least two participants")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("handle already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)
