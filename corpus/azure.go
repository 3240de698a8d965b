package corpus

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureScheme prefixes corpus locations stored in Azure Blob Storage:
// azblob://<account>/<container>/<prefix>.
const AzureScheme = "azblob://"

// blobStore is the slice of the blob API the source needs.
type blobStore interface {
	listBlobs(ctx context.Context, prefix string) ([]string, error)
	download(ctx context.Context, name string) ([]byte, error)
}

// AzureSource reads a corpus laid out under a blob name prefix.
type AzureSource struct {
	location string
	prefix   string
	store    blobStore
}

// NewAzureSource builds a source from an azblob:// location. Credentials
// come from AZURE_STORAGE_CONNECTION_STRING, or from AZURE_STORAGE_KEY used
// as the shared key for the account named in the location.
func NewAzureSource(location string) (*AzureSource, error) {
	account, containerName, prefix, err := ParseAzureLocation(location)
	if err != nil {
		return nil, err
	}

	client, err := newAzureClient(account)
	if err != nil {
		return nil, fmt.Errorf("azure client for %s: %w", location, err)
	}

	return &AzureSource{
		location: location,
		prefix:   prefix,
		store:    &azureStore{client: client, container: containerName},
	}, nil
}

// IsAzureLocation reports whether loc uses the azblob:// scheme.
func IsAzureLocation(loc string) bool {
	return strings.HasPrefix(loc, AzureScheme)
}

// ParseAzureLocation splits azblob://<account>/<container>/<prefix>. The
// prefix may be empty.
func ParseAzureLocation(location string) (account, containerName, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid blob location %q: %w", location, err)
	}

	if u.Scheme != "azblob" || u.Host == "" {
		return "", "", "", fmt.Errorf(
			"invalid blob location %q: want azblob://<account>/<container>/<prefix>",
			location,
		)
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", "", "", fmt.Errorf("invalid blob location %q: missing container", location)
	}

	containerName, prefix, _ = strings.Cut(path, "/")

	return u.Host, containerName, prefix, nil
}

func newAzureClient(account string) (*azblob.Client, error) {
	if conn := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); conn != "" {
		return azblob.NewClientFromConnectionString(conn, nil)
	}

	key := os.Getenv("AZURE_STORAGE_KEY")
	if key == "" {
		return nil, fmt.Errorf(
			"set AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_KEY",
		)
	}

	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, err
	}

	return azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", account),
		credential,
		nil,
	)
}

// List implements Source. Blobs nested deeper than <category>/<file> are
// ignored.
func (s *AzureSource) List(ctx context.Context) ([]Entry, error) {
	base := s.prefix
	if base != "" {
		base = strings.TrimSuffix(base, "/") + "/"
	}

	names, err := s.store.listBlobs(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.location, err)
	}

	var entries []Entry

	for _, name := range names {
		rel := strings.TrimPrefix(name, base)

		category, file, ok := strings.Cut(rel, "/")
		if !ok || category == "" || file == "" || strings.Contains(file, "/") {
			continue
		}

		entries = append(entries, Entry{Category: category, Name: file})
	}

	sortEntries(entries)

	return entries, nil
}

// Read implements Source.
func (s *AzureSource) Read(ctx context.Context, e Entry) ([]byte, error) {
	name := e.ID()
	if s.prefix != "" {
		name = strings.TrimSuffix(s.prefix, "/") + "/" + name
	}

	data, err := s.store.download(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}

	return data, nil
}

func (s *AzureSource) String() string {
	return s.location
}

type azureStore struct {
	client    *azblob.Client
	container string
}

func (a *azureStore) listBlobs(ctx context.Context, prefix string) ([]string, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	pager := a.client.NewListBlobsFlatPager(a.container, opts)

	var names []string

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}

	return names, nil
}

func (a *azureStore) download(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
