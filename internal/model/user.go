package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id" bson:"_id"`
	Email        string    `db:"email" json:"email" bson:"email"`
	PasswordHash string    `db:"password_hash" json:"-" bson:"password_hash"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt" bson:"created_at"`
}
