// Package app wires configuration, the platform client and the services for each command.
package app
