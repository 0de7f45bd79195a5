package db

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const contextKey = "wawebhook.db"

var ErrNoDatabase = errors.New("database not attached to request context")

// AttachDB exposes the store handle to handlers that only need a ping or an ad-hoc read.
func AttachDB(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, database)
		c.Next()
	}
}

func FromContext(c *gin.Context) *gorm.DB {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	database, _ := v.(*gorm.DB)
	return database
}

// Ping checks the pooled connection behind the gorm handle.
func Ping(database *gorm.DB) error {
	if database == nil {
		return ErrNoDatabase
	}
	return database.DB().Ping()
}
