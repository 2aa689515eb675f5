package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loopboard/loopboard/internal/breach"
	"github.com/loopboard/loopboard/internal/loop"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	api := router.Group("/api")
	api.GET("/alerts", handleAlerts(db))
	api.GET("/messages", handleMessages(db))
	api.GET("/messages/:id", handleMessageDetail(db))
	api.GET("/summary", handleSummary(db))
	api.GET("/events", handleSSE(db))
}

// handleAlerts lists alerts, non-resolved by default. Query params: status,
// agent, type.
func handleAlerts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := breach.ListAlerts(db, breach.ListFilters{
			Status:    c.Query("status"),
			AgentName: c.Query("agent"),
			AlertType: c.Query("type"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": alerts})
	}
}

// handleMessages lists open loops, optionally filtered to one agent's inbox.
func handleMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent := c.Query("agent")
		if agent != "" {
			msgs, err := loop.Inbox(db, agent)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"messages": msgs})
			return
		}

		msgs, err := OpenLoops(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

func handleMessageDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
			return
		}

		msg, err := loop.Get(db, uint(id))
		if err != nil {
			if errors.Is(err, loop.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		alerts, err := breach.ListAlerts(db, breach.ListFilters{})
		if err == nil {
			var related []interface{}
			for _, a := range alerts {
				if a.MessageID == msg.ID {
					related = append(related, a)
				}
			}
			c.JSON(http.StatusOK, gin.H{"message": msg, "alerts": related})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

func handleSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := AgentSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": rows})
	}
}
