// Package challenge generates the four puzzle kinds served by goCaptcha and compares
// client submissions against their expected answers.
//
// Every generator returns two values: the public [Challenge], which is safe to send to
// a client, and the secret [Answer], which only the verification engine may hold.
//
// # Kinds
//
//   - math: "a op b" arithmetic, answer compared case and whitespace insensitively
//   - image: 9-cell grid, answer is the set of cells matching a category
//   - slider: target position in [20,80] on a 0..100 track, compared within a tolerance
//   - pattern: ordered sequence of 4-5 distinct cells on a 3x3 grid
//
// # What this package must NOT do
//
//   - Touch storage, sessions, or clocks; generators are pure apart from crypto/rand.
//   - Put any part of an [Answer] into a [Challenge].
package challenge
