package utils

// TimeFormat is the timestamp layout used by log outputs.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"
