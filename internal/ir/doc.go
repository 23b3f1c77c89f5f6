// Package ir provides the value types shared by every cogtask package.
//
// This package contains type definitions and their pure helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Trial specifications are immutable once loaded
//   - Scoring labels are strings ("correct", "incorrect", "invalid"), never booleans
//   - Non-applicable task fields carry the Sentinel placeholder
//   - Content-addressed ids use canonical JSON (no floats) and SHA-256
package ir
