// Package config loads gateway configuration.
//
// Sources, later ones winning:
//
//  1. Defaults (Default).
//  2. A YAML file: the explicit path, else $REALMGATE_CONFIG, else the first
//     of ./realmgate.yaml and /etc/realmgate/realmgate.yaml that exists.
//     ${VAR} and ${VAR:-default} are expanded in the file text before
//     parsing; a referenced variable that is unset and has no default is an
//     error. $$ produces a literal $.
//  3. REALMGATE_* environment variables (see Overrides).
//
// The result is validated before it is returned. Unknown YAML keys are
// rejected.
package config
