/*
Package secrets resolves ${secret:name} references in credential fields of
the configuration.

A value such as

	model:
	  api_key: ${secret:openai-api-key}

is looked up first in the environment (CHATRELAY_SECRET_OPENAI_API_KEY with
the default prefix) and then in security.secrets.dir, which holds one file
per secret with mode 0600 or 0400:

	m, err := secrets.FromConfig(&cfg.Security.Secrets)
	if err != nil {
		return err
	}
	if err := m.ResolveFields(ctx, cfg.SecretFields()); err != nil {
		return err
	}

Resolved values are cached for security.secrets.cache_ttl. Refresh drops
the cache and the values the file provider has read, so a configuration
reload picks up rotated secrets.
*/
package secrets
