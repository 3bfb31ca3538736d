package main

import (
	"fmt"
	"math"
	"os"
	"time"
)

// ==================== UTILITY FUNCTIONS ====================

func getHostnameSafe() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

func sqrtInt(n int) float64 {
	return math.Sqrt(float64(n))
}

func formatDurationDetailed(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
