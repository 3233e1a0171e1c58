// Package controller reconciles TimeService resources against the chrony
// daemon on the host: package installation, configuration rendering and
// apply, certificate material, daemon restarts and status reporting.
package controller
