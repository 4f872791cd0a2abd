// Package authz decides whether a user may exercise a capability inside a club or board.
//
// The Evaluator is a pure function of a Snapshot (the user plus the positions of
// responsibility they hold, each joined with its privilege type) and the current
// instant. It performs no I/O. Callers that resolve snapshots from storage must
// treat any lookup failure as a denial.
//
// Decision order, first match wins:
//  1. banned users are denied everything, super admins included
//  2. super admins are allowed everything
//  3. requests naming no unit are denied
//  4. the target unit is the club when given, otherwise the board
//  5. allowed when any position active at now in the target unit grants the capability
package authz
