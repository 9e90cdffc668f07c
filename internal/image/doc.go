// Package image makes sure the recovery image that workers boot from is
// present on the provisioning host.
package image
