package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const (
	wsKeyCompany = "company_id"
	wsKeyUser    = "user_id"
)

// Update is the realtime message pushed to a company's subscribers.
type Update struct {
	Type   string `json:"type"`   // created, updated, deleted, toggled
	Entity string `json:"entity"` // event, task, company, member, invitation
	ID     string `json:"id"`
	User   string `json:"user"`
}

type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-Alive for hosts that drop idle connections
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		utils.LogWebSocket("Connected", sessionKey(s, wsKeyCompany), sessionKey(s, wsKeyUser))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		utils.LogWebSocket("Disconnected", sessionKey(s, wsKeyCompany), sessionKey(s, wsKeyUser))
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

func sessionKey(s *melody.Session, key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// HandleWS upgrades a member's connection to the company channel. Runs
// after WSAuthMiddleware and LoadSession.
func (h *WSHandler) HandleWS(c *gin.Context) {
	companyID := c.Param("id")
	sess := middleware.GetSession(c)
	if sess == nil || !sess.IsMember(companyID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		wsKeyCompany: companyID,
		wsKeyUser:    sess.UserID,
	})
	if err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// Broadcast sends an update to every client listening on the company.
func (h *WSHandler) Broadcast(companyID string, update Update) {
	if h == nil || companyID == "" {
		return
	}
	msg, err := json.Marshal(update)
	if err != nil {
		log.Printf("⚠️ Error encoding update: %v", err)
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get(wsKeyCompany)
		return exists && id == companyID
	})
	if err != nil {
		log.Printf("⚠️ Error broadcasting to company %s: %v", companyID, err)
	}
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}
