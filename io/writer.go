package io

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/hangxie/parquet-go/v2/source"
	"github.com/hangxie/parquet-go/v2/source/azblob"
	"github.com/hangxie/parquet-go/v2/source/gcs"
	"github.com/hangxie/parquet-go/v2/source/hdfs"
	"github.com/hangxie/parquet-go/v2/source/local"
	"github.com/hangxie/parquet-go/v2/source/s3v2"
	"github.com/hangxie/parquet-go/v2/writer"
)

// WriteOption includes options for write operation
type WriteOption struct {
	Compression string `short:"z" help:"(Parquet only) compression codec (UNCOMPRESSED/SNAPPY/GZIP/LZ4/LZ4_RAW/ZSTD/BROTLI)" enum:"UNCOMPRESSED,SNAPPY,GZIP,LZ4,LZ4_RAW,ZSTD,BROTLI" default:"SNAPPY"`
}

func newLocalWriter(u *url.URL) (source.ParquetFileWriter, error) {
	fileWriter, err := local.NewLocalFileWriter(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local file [%s]: %w", u.Path, err)
	}
	return fileWriter, nil
}

func newAWSS3Writer(u *url.URL) (source.ParquetFileWriter, error) {
	s3Client, err := newS3Client(u.Host, false, false)
	if err != nil {
		return nil, err
	}

	fileWriter, err := s3v2.NewS3FileWriterWithClient(context.Background(), s3Client, u.Host, objectKey(u), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open S3 object [%s]: %w", u.String(), err)
	}
	return fileWriter, nil
}

func newGoogleCloudStorageWriter(u *url.URL) (source.ParquetFileWriter, error) {
	fileWriter, err := gcs.NewGcsFileWriter(context.Background(), "", u.Host, objectKey(u))
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object [%s]: %w", u.String(), err)
	}
	return fileWriter, nil
}

func newAzureStorageBlobWriter(u *url.URL) (source.ParquetFileWriter, error) {
	// write operation cannot be with anonymous access
	azURL, cred, err := azureBlob(u, false, "")
	if err != nil {
		return nil, err
	}

	fileWriter, err := azblob.NewAzBlobFileWriter(context.Background(), azURL, cred, blockblob.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open Azure blob object [%s]: %w", u.String(), err)
	}
	return fileWriter, nil
}

func newHTTPWriter(u *url.URL) (source.ParquetFileWriter, error) {
	return nil, fmt.Errorf("writing to [%s] endpoint is not currently supported", u.Scheme)
}

func newHDFSWriter(u *url.URL) (source.ParquetFileWriter, error) {
	fileWriter, err := hdfs.NewHdfsFileWriter([]string{u.Host}, hdfsUser(u), u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HDFS source [%s]: %w", u.String(), err)
	}
	return fileWriter, nil
}

// NewFileWriter creates the object uri points to and returns a writer for its bytes
func NewFileWriter(uri string) (source.ParquetFileWriter, error) {
	writerFuncTable := map[string]func(*url.URL) (source.ParquetFileWriter, error){
		schemeLocal:              newLocalWriter,
		schemeAWSS3:              newAWSS3Writer,
		schemeGoogleCloudStorage: newGoogleCloudStorageWriter,
		schemeAzureStorageBlob:   newAzureStorageBlobWriter,
		schemeHTTP:               newHTTPWriter,
		schemeHTTPS:              newHTTPWriter,
		schemeHDFS:               newHDFSWriter,
	}

	u, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if writerFunc, found := writerFuncTable[u.Scheme]; found {
		return writerFunc(u)
	}
	return nil, fmt.Errorf("unknown location scheme [%s]", u.Scheme)
}

// NewGenericWriter creates a Parquet writer for rows shaped like obj
func NewGenericWriter(uri string, option WriteOption, obj any) (*writer.ParquetWriter, error) {
	codec, err := compressionCodec(option.Compression)
	if err != nil {
		return nil, err
	}

	fileWriter, err := NewFileWriter(uri)
	if err != nil {
		return nil, err
	}

	pw, err := writer.NewParquetWriter(fileWriter, obj, int64(runtime.NumCPU()))
	if err != nil {
		_ = fileWriter.Close()
		return nil, err
	}
	pw.CompressionType = codec
	return pw, nil
}

// CloseWriter closes pf, HDFS may need a few attempts while the last block is replicated
func CloseWriter(pf source.ParquetFileWriter) error {
	// https://github.com/colinmarc/hdfs/blob/v2.4.0/file_writer.go#L220-L226
	var err error
	for range 10 {
		err = pf.Close()
		if err != nil && strings.Contains(err.Error(), "replication in progress") {
			time.Sleep(1 * time.Second)
			continue
		}
		break
	}
	return err
}
