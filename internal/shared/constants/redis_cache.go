package constants

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Redis Cache Configuration
// Pattern: busline:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC    = 5 * time.Minute  // trip search pages
	TTL_DYNAMIC_SHORT  = 2 * time.Minute  // trip detail with booked seats
	TTL_REALTIME_SHORT = 30 * time.Second // resolved seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "busline"
)

// ================== TRIPS MODULE ==================

const (
	CACHE_KEY_TRIPS_SEARCH = CACHE_PREFIX + ":trips:search"        // + :origin:X:destination:Y:date:Z:page:N:limit:M
	CACHE_KEY_TRIP_DETAIL  = CACHE_PREFIX + ":trips:detail:uuid:"  // + trip-id
	CACHE_KEY_SEAT_MAP     = CACHE_PREFIX + ":trips:seatmap:uuid:" // + trip-id:nic:H:edit:B:selected:1,2
)

const (
	TTL_TRIPS_SEARCH = TTL_SEMI_STATIC
	TTL_TRIP_DETAIL  = TTL_DYNAMIC_SHORT
	TTL_SEAT_MAP     = TTL_REALTIME_SHORT
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_TRIPS_SEARCH = CACHE_KEY_TRIPS_SEARCH + ":*"
)

// ================== HELPER FUNCTIONS ==================

func BuildTripDetailKey(tripID string) string {
	return CACHE_KEY_TRIP_DETAIL + tripID
}

// BuildTripSearchKey -> "busline:trips:search:origin:colombo:destination:kandy:date:2026-10-14:page:1:limit:10"
func BuildTripSearchKey(origin, destination, date string, page, limit int) string {
	return fmt.Sprintf("%s:origin:%s:destination:%s:date:%s:page:%d:limit:%d",
		CACHE_KEY_TRIPS_SEARCH, strings.ToLower(origin), strings.ToLower(destination), date, page, limit)
}

// BuildSeatMapKey -> "busline:trips:seatmap:uuid:{id}:nic:{hash}:edit:true:selected:3,9"
// The NIC never appears in the key, only a digest of it.
func BuildSeatMapKey(tripID, nic string, edit bool, selected string) string {
	return fmt.Sprintf("%s%s:nic:%s:edit:%t:selected:%s", CACHE_KEY_SEAT_MAP, tripID, nicDigest(nic), edit, selected)
}

// nicDigest -> "anon" for anonymous viewers, else the first 16 hex chars of sha256(nic)
func nicDigest(nic string) string {
	if nic == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(nic))
	return hex.EncodeToString(sum[:8])
}

// BuildSeatMapPattern matches every cached seat map of a trip
func BuildSeatMapPattern(tripID string) string {
	return CACHE_KEY_SEAT_MAP + tripID + ":*"
}

