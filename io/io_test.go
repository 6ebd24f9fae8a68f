package io

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hangxie/parquet-go/v2/parquet"
	"github.com/stretchr/testify/require"
)

func randomAccessKey(t *testing.T) string {
	t.Helper()
	randBytes := make([]byte, 64)
	_, err := rand.Read(randBytes)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(randBytes)
}

func TestAzureBlob(t *testing.T) {
	t.Run("invalid-uri", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", "")

		testCases := map[string]url.URL{
			"no-host":      {Path: "/path/to/blob", User: url.User("container")},
			"no-container": {Host: "storageaccount.blob.core.windows.net", Path: "/path/to/blob"},
			"empty-blob":   {Host: "storageaccount.blob.core.windows.net", Path: "/dir/", User: url.User("container")},
		}
		for name, u := range testCases {
			t.Run(name, func(t *testing.T) {
				uri, cred, err := azureBlob(&u, false, "")
				require.Error(t, err)
				require.Contains(t, err.Error(), "azure blob URI format:")
				require.Empty(t, uri)
				require.Nil(t, cred)
			})
		}
	})

	u := url.URL{
		Host: "storageaccount.blob.core.windows.net",
		Path: "/planet/buildings.osm.pbf",
		User: url.User("container"),
	}
	expected := "https://storageaccount.blob.core.windows.net/container/planet/buildings.osm.pbf"

	t.Run("bad-shared-cred", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", "bad-access-key")
		uri, cred, err := azureBlob(&u, false, "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create Azure credential")
		require.Empty(t, uri)
		require.Nil(t, cred)
	})

	t.Run("anonymous-without-key", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", "")
		uri, cred, err := azureBlob(&u, false, "")
		require.NoError(t, err)
		require.Equal(t, expected, uri)
		require.Nil(t, cred)
	})

	t.Run("anonymous-explicit", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", randomAccessKey(t))
		uri, cred, err := azureBlob(&u, true, "")
		require.NoError(t, err)
		require.Equal(t, expected, uri)
		require.Nil(t, cred)
	})

	t.Run("with-version", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", "")
		uri, _, err := azureBlob(&u, false, "v1")
		require.NoError(t, err)
		require.Equal(t, expected+"?versionid=v1", uri)
	})

	t.Run("shared-cred", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCESS_KEY", randomAccessKey(t))
		uri, cred, err := azureBlob(&u, false, "")
		require.NoError(t, err)
		require.Equal(t, expected, uri)
		require.NotNil(t, cred)
		require.Equal(t, "storageaccount", cred.AccountName())
	})
}

func TestCompressionCodec(t *testing.T) {
	for _, codec := range ValidCompressionCodecs {
		t.Run(codec, func(t *testing.T) {
			t.Parallel()
			_, err := compressionCodec(codec)
			require.NoError(t, err)
		})
	}

	t.Run("lower-case", func(t *testing.T) {
		codec, err := compressionCodec("zstd")
		require.NoError(t, err)
		require.Equal(t, parquet.CompressionCodec_ZSTD, codec)
	})

	t.Run("lzo", func(t *testing.T) {
		_, err := compressionCodec("LZO")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid compression codec [LZO]")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := compressionCodec("foobar")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid compression codec")
	})
}

func TestParseURI(t *testing.T) {
	testCases := map[string]struct {
		uri    string
		scheme string
		host   string
		path   string
		errMsg string
	}{
		"invalid-uri":    {"://uri", "", "", "", "unable to parse file location"},
		"with-user":      {"scheme://username@path/to/file", "scheme", "path", "/to/file", ""},
		"with-file":      {"file://path/to/file", "file", "", "path/to/file", ""},
		"with-file-root": {"file:///path/to/file", "file", "", "/path/to/file", ""},
		"without-file":   {"path/to/file", "file", "", "path/to/file", ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			u, err := parseURI(tc.uri)
			if tc.errMsg != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.scheme, u.Scheme)
			require.Equal(t, tc.host, u.Host)
			require.Equal(t, tc.path, u.Path)
		})
	}
}

func TestExt(t *testing.T) {
	testCases := map[string]struct {
		uri    string
		ext    string
		errMsg string
	}{
		"invalid-uri":  {"://uri", "", "unable to parse file location"},
		"pbf":          {"planet.pbf", ".pbf", ""},
		"osm-pbf":      {"s3://bucket/extracts/Monaco.OSM.PBF", ".osm.pbf", ""},
		"osm":          {"file:///tmp/map.osm", ".osm", ""},
		"xml":          {"https://example.com/export.xml?bbox=1", ".xml", ""},
		"csv":          {"angles.csv", ".csv", ""},
		"parquet":      {"gs://bucket/angles.parquet", ".parquet", ""},
		"no-extension": {"angles", "", ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ext, err := Ext(tc.uri)
			if tc.errMsg != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.ext, ext)
		})
	}
}

func s3RegionServer(t *testing.T, status int, region string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if region != "" {
			w.Header().Set("X-Amz-Bucket-Region", region)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	saved := s3RegionURL
	s3RegionURL = func(string) string { return server.URL }
	t.Cleanup(func() { s3RegionURL = saved })
}

func TestS3BucketRegion(t *testing.T) {
	testCases := map[string]struct {
		status    int
		anonymous bool
		region    string
		errMsg    string
	}{
		"public":            {http.StatusOK, true, "us-west-2", ""},
		"private":           {http.StatusForbidden, false, "eu-west-1", ""},
		"private-anonymous": {http.StatusForbidden, true, "", "is not public"},
		"not-found":         {http.StatusNotFound, false, "", "not found"},
		"unexpected":        {http.StatusTeapot, false, "", "unrecognized StatusCode from AWS: 418"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s3RegionServer(t, tc.status, tc.region)
			region, err := s3BucketRegion(nil, "bucket", tc.anonymous)
			if tc.errMsg != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.region, region)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		saved := s3RegionURL
		s3RegionURL = func(string) string { return "http://127.0.0.1:0" }
		t.Cleanup(func() { s3RegionURL = saved })

		_, err := s3BucketRegion(nil, "bucket", false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unable to get region for S3 bucket bucket")
	})
}

func TestS3HTTPClient(t *testing.T) {
	testCases := map[string]struct {
		bucket    string
		ignoreTLS bool
		custom    bool
	}{
		"plain":             {"bucket", false, false},
		"plain-ignore-tls":  {"bucket", true, false},
		"dotted":            {"my.bucket", false, false},
		"dotted-ignore-tls": {"my.bucket", true, true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client := s3HTTPClient(tc.bucket, tc.ignoreTLS)
			if !tc.custom {
				require.Nil(t, client)
				return
			}
			require.NotNil(t, client)
			transport, ok := client.Transport.(*http.Transport)
			require.True(t, ok)
			require.True(t, transport.TLSClientConfig.InsecureSkipVerify)
		})
	}
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")
	t.Setenv("AWS_PROFILE", "")

	t.Run("anonymous", func(t *testing.T) {
		s3RegionServer(t, http.StatusOK, "us-west-2")
		client, err := newS3Client("bucket", true, false)
		require.NoError(t, err)
		require.Equal(t, "us-west-2", client.Options().Region)
	})

	t.Run("with-credentials", func(t *testing.T) {
		s3RegionServer(t, http.StatusForbidden, "eu-west-1")
		client, err := newS3Client("bucket", false, false)
		require.NoError(t, err)
		require.Equal(t, "eu-west-1", client.Options().Region)
	})

	t.Run("bucket-error", func(t *testing.T) {
		s3RegionServer(t, http.StatusNotFound, "")
		client, err := newS3Client("bucket", false, false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unable to access to [bucket]")
		require.Nil(t, client)
	})
}
