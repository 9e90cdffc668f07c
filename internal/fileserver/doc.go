// Package fileserver publishes local files over an NFS export so BMCs can
// mount them as virtual media.
package fileserver
