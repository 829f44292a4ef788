package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FriendRequestStatus tracks a friend request. Declined is terminal, as is accepted.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is an invitation from one user to another.
type FriendRequest struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID  `bson:"senderId" json:"senderId"`
	ReceiverID primitive.ObjectID  `bson:"receiverId" json:"receiverId"`
	Status     FriendRequestStatus `bson:"status" json:"status"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Friendship is one direction of an accepted friendship; accepting creates both directions.
type Friendship struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	FriendID    primitive.ObjectID `bson:"friendId" json:"friendId"`
	FriendSince time.Time          `bson:"friendSince" json:"friendSince"`
}
