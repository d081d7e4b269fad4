package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const DateLayout = "2006-01-02"

func GetParam(ctx *gin.Context, name string) (string, error) {
	value := strings.TrimSpace(ctx.Param(name))

	if value == "" {
		return "", fmt.Errorf("%s is required", name)
	}

	return value, nil
}

// ParseDate accepts a calendar date or a full RFC 3339 timestamp. Timestamps
// keep the calendar date as written in their own offset.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	if value == "" {
		return time.Time{}, errors.New("date is required")
	}

	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// ParseActiveFilter reads an isActive query value; empty and "all" mean no
// filter.
func ParseActiveFilter(value string) (*bool, error) {
	value = strings.TrimSpace(value)

	if value == "" || strings.EqualFold(value, "all") {
		return nil, nil
	}

	active, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("invalid isActive value %q", value)
	}

	return &active, nil
}
