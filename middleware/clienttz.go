package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/utils"
)

// ClientTimezoneHeader carries the browser's IANA zone. Range filters and
// "today" are computed in it, falling back to the server's local zone.
const ClientTimezoneHeader = "X-Client-Timezone"

func ClientLocation(c *gin.Context) *time.Location {
	tz := strings.TrimSpace(c.GetHeader(ClientTimezoneHeader))
	if tz == "" {
		return time.Local
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		utils.SafeDebug("Ignoring client timezone %q: %v", tz, err)
		return time.Local
	}
	return loc
}

// ClientNow is the current instant in the client's zone.
func ClientNow(c *gin.Context) time.Time {
	return time.Now().In(ClientLocation(c))
}

// ClientToday is the client's calendar date as YYYY-MM-DD.
func ClientToday(c *gin.Context) string {
	return utils.FormatYYYYMMDD(ClientNow(c))
}
