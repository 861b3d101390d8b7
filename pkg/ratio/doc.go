// Package ratio resolves aspect-ratio tokens ("16:9", "1:1", "portrait", ...)
// into numeric width/height proportions and snaps arbitrary proportions to the
// nearest supported bucket.
package ratio
