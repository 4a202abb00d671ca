// Package tls serves the relay over HTTPS and WSS.
//
// ServerConfig turns the server.tls configuration into a crypto/tls
// configuration whose certificate comes from a CertificateReloader, so a
// renewed certificate written over the configured files is picked up on
// the next poll:
//
//	tlsCfg, err := tls.ServerConfig(ctx, &cfg.Server.TLS, logger)
//	if err != nil {
//		return err
//	}
//	srv.TLSConfig = tlsCfg
//	err = srv.ListenAndServeTLS("", "")
//
// Only TLS 1.2 and 1.3 are accepted.
package tls
