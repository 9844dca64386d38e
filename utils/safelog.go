// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal data when running in production
// ============================================================================
// Emails, push endpoints, bearer tokens and full UUIDs are rewritten before a
// line reaches the log when GIN_MODE=release or ENVIRONMENT=production.
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

var (
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	// LogLevel filters Safe* output (DEBUG, INFO, WARN, ERROR)
	LogLevel = ParseLogLevel(os.Getenv("LOG_LEVEL"))
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a LOG_LEVEL value to its level, defaulting to INFO.
func ParseLogLevel(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ============================================================================
// MASKING PATTERNS
// ============================================================================

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`)

	// push service endpoints embed a per-device token in the path
	endpointRegex = regexp.MustCompile(`https://[a-zA-Z0-9.-]+/[^\s"']{16,}`)

	// ?token= on websocket upgrade URLs
	tokenParamRegex = regexp.MustCompile(`([?&]token=)[^&\s]+`)
)

// ============================================================================
// MASKING
// ============================================================================

// MaskString masks sensitive values in a free-form message. It is the
// identity outside production.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}
	return maskAll(input)
}

func maskAll(input string) string {
	result := bearerRegex.ReplaceAllString(input, "Bearer ***")
	result = tokenParamRegex.ReplaceAllString(result, "${1}***")
	result = endpointRegex.ReplaceAllStringFunc(result, func(endpoint string) string {
		if i := strings.Index(endpoint[len("https://"):], "/"); i > 0 {
			return endpoint[:len("https://")+i] + "/***"
		}
		return "https://***"
	})
	result = emailRegex.ReplaceAllString(result, "***@***.***")
	result = uuidRegex.ReplaceAllStringFunc(result, shortID)
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return "***"
}

// MaskID keeps the first 8 characters of an identifier in production.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	return shortID(id)
}

// MaskEmail keeps only the domain of an address in production.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	if at := strings.LastIndex(email, "@"); at > 0 {
		return "***" + email[at:]
	}
	return "***@***.***"
}

// MaskSecret is used for API keys shown back to admins, in every mode.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// ============================================================================
// LEVELLED LOGGING
// ============================================================================

func SafeLog(format string, args ...interface{}) {
	log.Print(MaskString(fmt.Sprintf(format, args...)))
}

func SafeDebug(format string, args ...interface{}) {
	if LogLevel > LogLevelDebug {
		return
	}
	log.Printf("[DEBUG] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeInfo(format string, args ...interface{}) {
	if LogLevel > LogLevelInfo {
		return
	}
	log.Printf("[INFO] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeWarn(format string, args ...interface{}) {
	if LogLevel > LogLevelWarn {
		return
	}
	log.Printf("[WARN] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeError(format string, args ...interface{}) {
	log.Printf("[ERROR] %s", MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// DOMAIN LOGGING
// ============================================================================

// LogCompanyAction logs a change to a company or its membership.
func LogCompanyAction(action string, companyID string, userID string) {
	log.Printf("[Company] %s - Company: %s User: %s", action, MaskID(companyID), MaskID(userID))
}

// LogEventAction logs a change to an event or a task.
func LogEventAction(action string, itemID string, userID string) {
	log.Printf("[Calendar] %s - Item: %s User: %s", action, MaskID(itemID), MaskID(userID))
}

// LogInvitation logs invitation lifecycle changes.
func LogInvitation(action string, invitationID string, email string) {
	log.Printf("[Invitation] %s - Invitation: %s Email: %s", action, MaskID(invitationID), MaskEmail(email))
}

func LogAuthAction(action string, email string, success bool) {
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	log.Printf("[Auth] %s - Email: %s Status: %s", action, MaskEmail(email), status)
}

// LogNotification logs an email or push delivery attempt.
func LogNotification(channel string, kind string, recipient string, err error) {
	if err != nil {
		log.Printf("[Notify] ❌ %s %s to %s: %s", channel, kind, MaskEmail(recipient), MaskString(err.Error()))
		return
	}
	log.Printf("[Notify] 📧 %s %s sent to %s", channel, kind, MaskEmail(recipient))
}

func LogAPIRequest(method string, path string, userID string, statusCode int, duration string) {
	if IsProduction {
		path = uuidRegex.ReplaceAllStringFunc(path, shortID)
	}
	log.Printf("[API] %s %s - User: %s Status: %d Duration: %s", method, path, MaskID(userID), statusCode, duration)
}

func LogWebSocket(action string, companyID string, userID string) {
	log.Printf("[WS] %s - Company: %s User: %s", action, MaskID(companyID), MaskID(userID))
}

// ============================================================================
// STARTUP
// ============================================================================

func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

func LogStartup(appName string, version string, port string) {
	log.Printf("🚀 %s v%s starting...", appName, version)
	log.Printf("   Mode: %s", GetEnvMode())
	log.Printf("   Port: %s", port)
	log.Printf("   Log Level: %d", LogLevel)
	if IsProduction {
		log.Printf("   ⚠️  Production mode: personal data will be masked in logs")
	}
}
