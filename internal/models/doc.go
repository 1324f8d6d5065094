// Package models defines the core domain models for courtbill.
//
// # Models
//
//   - Session: one club's billing period, the unit of persistence
//   - ClubFile: one imported attendance/payment file and its derived records
//   - AttendeeRecord: one row of a ClubFile
//   - FeeSchedule: per-status monetary amounts used to compute file totals
//   - CompedList: the standing "no charge" name list
//
// # Design principles
//
//  1. The serialized form of a Session (see the json tags) is the sole
//     source of truth on reload; nothing is reconstructed from filenames
//     alone.
//  2. A record's status may be derived (classifier output) or overridden
//     (user decision). All status writes go through SetDerived/Override so
//     a derived value can never clobber an override.
//  3. Cached totals are owned by the finance package; models only store
//     them.
package models
