package io

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hangxie/parquet-go/v2/parquet"
)

const (
	schemeLocal              string = "file"
	schemeGoogleCloudStorage string = "gs"
	schemeHDFS               string = "hdfs"
	schemeHTTP               string = "http"
	schemeHTTPS              string = "https"
	schemeAWSS3              string = "s3"
	schemeAzureStorageBlob   string = "wasbs"
)

func parseURI(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to parse file location [%s]: %w", uri, err)
	}

	if u.Scheme == "" {
		u.Scheme = schemeLocal
	}

	if u.Scheme == schemeLocal {
		u.Path = filepath.Join(u.Host, u.Path)
		u.Host = ""
	}

	return u, nil
}

// objectKey is the bucket relative name of an object store URI
func objectKey(u *url.URL) string {
	return strings.TrimLeft(u.Path, "/")
}

// Ext returns the lower-cased extension of the object a URI points to,
// ".osm.pbf" and ".osm.xml" are returned whole.
func Ext(uri string) (string, error) {
	u, err := parseURI(uri)
	if err != nil {
		return "", err
	}
	base := strings.ToLower(path.Base(u.Path))
	ext := path.Ext(base)
	if inner := path.Ext(strings.TrimSuffix(base, ext)); inner == ".osm" {
		ext = inner + ext
	}
	return ext, nil
}

// s3RegionURL is where the region header of a bucket is looked up
var s3RegionURL = func(bucket string) string {
	return "https://" + bucket + ".s3.amazonaws.com"
}

// s3HTTPClient returns nil unless the default client cannot be used: the
// wildcard certificate of s3.amazonaws.com does not cover bucket names with dots
func s3HTTPClient(bucket string, ignoreTLS bool) *http.Client {
	if !ignoreTLS || !strings.Contains(bucket, ".") {
		return nil
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

func s3BucketRegion(client *http.Client, bucket string, anonymous bool) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Head(s3RegionURL(bucket))
	if err != nil {
		return "", fmt.Errorf("unable to get region for S3 bucket %s: %w", bucket, err)
	}
	_ = resp.Body.Close()

	region := resp.Header.Get("X-Amz-Bucket-Region")
	switch resp.StatusCode {
	case http.StatusOK:
		return region, nil
	case http.StatusForbidden:
		// private buckets still report their region
		if !anonymous {
			return region, nil
		}
		return "", fmt.Errorf("S3 bucket %s is not public", bucket)
	case http.StatusNotFound:
		return "", fmt.Errorf("S3 bucket %s not found", bucket)
	}
	return "", fmt.Errorf("unrecognized StatusCode from AWS: %d", resp.StatusCode)
}

func newS3Client(bucket string, anonymous, ignoreTLS bool) (*s3.Client, error) {
	httpClient := s3HTTPClient(bucket, ignoreTLS)
	region, err := s3BucketRegion(httpClient, bucket, anonymous)
	if err != nil {
		return nil, fmt.Errorf("unable to access to [%s]: %w", bucket, err)
	}

	if anonymous {
		cfg := aws.Config{Region: region, Credentials: aws.AnonymousCredentials{}}
		if httpClient != nil {
			cfg.HTTPClient = httpClient
		}
		return s3.NewFromConfig(cfg), nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if httpClient != nil {
		opts = append(opts, config.WithHTTPClient(httpClient))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for [%s]: %w", bucket, err)
	}
	return s3.NewFromConfig(cfg), nil
}

// azureBlob turns wasbs://container@account.blob.core.windows.net/path into the
// HTTPS blob URL and, unless anonymous, a shared key credential from
// AZURE_STORAGE_ACCESS_KEY
func azureBlob(u *url.URL, anonymous bool, versionID string) (string, *azblob.SharedKeyCredential, error) {
	container := u.User.Username()
	if u.Host == "" || container == "" || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", nil, fmt.Errorf("azure blob URI format: wasbs://container@storageaccount.blob.core.windows.net/path/to/blob")
	}

	blobURL := url.URL{Scheme: "https", Host: u.Host, Path: "/" + container + u.Path}
	if versionID != "" {
		blobURL.RawQuery = url.Values{"versionid": {versionID}}.Encode()
	}

	accessKey := os.Getenv("AZURE_STORAGE_ACCESS_KEY")
	if anonymous || accessKey == "" {
		return blobURL.String(), nil, nil
	}

	account, _, _ := strings.Cut(u.Host, ".")
	credential, err := azblob.NewSharedKeyCredential(account, accessKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return blobURL.String(), credential, nil
}

// ValidCompressionCodecs lists the codecs accepted for Parquet results
var ValidCompressionCodecs = []string{
	"UNCOMPRESSED", "SNAPPY", "GZIP", "LZ4", "LZ4_RAW", "ZSTD", "BROTLI",
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	name = strings.ToUpper(name)
	if !slices.Contains(ValidCompressionCodecs, name) {
		return parquet.CompressionCodec_UNCOMPRESSED, fmt.Errorf("invalid compression codec [%s], valid codecs: %s", name, strings.Join(ValidCompressionCodecs, ", "))
	}
	return parquet.CompressionCodecFromString(name)
}
