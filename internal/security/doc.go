// Package security builds the posture report exposed by Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Read configuration or engine state itself; callers pass a ReportInput.
package security
