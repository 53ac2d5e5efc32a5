// Package store keeps the player -> animation -> points associations in memory
// and mirrors them to a flat comma-separated snapshot file after every mutation.
package store
