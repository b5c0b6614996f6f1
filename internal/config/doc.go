// Package config loads and saves the settings shared by the bandcamp
// binaries.
//
// Settings live in a JSON file, by default DefaultPath(). Fields missing
// from the file keep the values of DefaultSettings():
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	settings.Handle = "jane"
//	err = settings.Save(config.DefaultPath())
//
// The file carries the account (handle, identity token, developer key), the
// cache backend and TTL overrides, HTTP limits, download, tagging and
// playlist options, and the listen address of the HTTP adapter.
//
// When the account changes, CredentialsChanged tells the caller to clear
// the response cache so one account's data is never served to another.
package config
