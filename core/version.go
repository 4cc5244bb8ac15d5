package core

// Version is the gateway release version reported by /api/info.
const Version = "1.0.0"
