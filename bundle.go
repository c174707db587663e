package reviewdb

import "archive/zip"
import "crypto/tls"
import "crypto/x509"
import "encoding/json"
import "errors"
import "fmt"
import "io"
import "strconv"

// bundle is the content of a secure connect bundle: a zip archive holding a config.json that
// names the endpoint, and the PEM files needed for mutual TLS.
type bundle struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	CQLPort int    `json:"cql_port"`
	LocalDC string `json:"localDC"`

	CACert []byte `json:"-"`
	Cert   []byte `json:"-"`
	Key    []byte `json:"-"`
}

func readBundle(path string) (*bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	files := make(map[string][]byte)
	for _, f := range r.File {
		switch f.Name {
		case "config.json", "ca.crt", "cert", "key":
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files[f.Name] = b
	}

	raw, ok := files["config.json"]
	if !ok {
		return nil, errors.New("bundle has no config.json")
	}
	b := &bundle{}
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("bundle config.json: %w", err)
	}
	if b.Host == "" {
		return nil, errors.New("bundle config.json names no host")
	}
	for _, name := range []string{"ca.crt", "cert", "key"} {
		if _, ok := files[name]; !ok {
			return nil, errors.New("bundle is missing " + name)
		}
	}
	b.CACert, b.Cert, b.Key = files["ca.crt"], files["cert"], files["key"]
	return b, nil
}

// endpoint returns the host:port to dial for CQL traffic.
func (b *bundle) endpoint() string {
	port := b.CQLPort
	if port == 0 {
		port = b.Port
	}
	if port == 0 {
		port = 9042
	}
	return b.Host + ":" + strconv.Itoa(port)
}

func (b *bundle) tlsConfig() (*tls.Config, error) {
	cert, err := tls.X509KeyPair(b.Cert, b.Key)
	if err != nil {
		return nil, fmt.Errorf("bundle client certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b.CACert) {
		return nil, errors.New("bundle ca.crt holds no certificates")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   b.Host,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
