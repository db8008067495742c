// Package payload computes the final column values of every atomic segment
// from its covering source rows and, where one exists, its covering target
// row. Resolution is stateless: each segment depends only on its own
// covering rows.
package payload
