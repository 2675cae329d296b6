// Package config defines the settings of the smile alarm daemon and CLI and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds file locations, loop cadences, collaborator timeouts
// and the external camera and detector adapters.
package config
