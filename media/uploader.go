package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	logapi "github.com/storefront/mediastore/logger/api"
)

// UploadOptions tune one Upload call.
type UploadOptions struct {
	Policy OverwritePolicy
	// RequireClass rejects Unclassified media.
	RequireClass bool
	// Allowed restricts the accepted classes; empty accepts any.
	Allowed []MediaClass
}

// PictureRecord is what the metadata store persists for an asset.
type PictureRecord struct {
	Name      string     `json:"name"`
	Src       string     `json:"src"`
	Type      string     `json:"type"`
	Extension string     `json:"extension"`
	OwnerIDs  OwnerChain `json:"owner_ids"`
}

// Record projects a stored asset into its metadata row.
func (a StoredAsset) Record() PictureRecord {
	ext := strings.TrimPrefix(path.Ext(a.Path.FileName), ".")
	return PictureRecord{
		Name:      strings.TrimSuffix(a.Path.FileName, path.Ext(a.Path.FileName)),
		Src:       a.PublicURL,
		Type:      a.Class.String(),
		Extension: ext,
		OwnerIDs:  a.Owner,
	}
}

// Uploader runs the full flow: resolve the extension, classify, build the
// path, then hand off to the Store.
type Uploader struct {
	store      *Store
	classifier Classifier
	log        logapi.Logger
}

func NewUploader(store *Store, classifier Classifier, log logapi.Logger) *Uploader {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Uploader{
		store:      store,
		classifier: classifier,
		log:        logapi.OrNop(log).WithComponent("media-uploader"),
	}
}

func (u *Uploader) Store() *Store {
	return u.store
}

func (u *Uploader) Classifier() Classifier {
	return u.classifier
}

// Plan resolves where req would be stored without touching the backend.
// The returned request may carry a re-wrapped Content when the extension had
// to be sniffed from the payload.
func (u *Uploader) Plan(layout Layout, req UploadRequest, opts UploadOptions) (UploadRequest, MediaClass, StoragePath, error) {
	req, ext, err := u.resolveExtension(req)
	if err != nil {
		return req, Unclassified, StoragePath{}, err
	}

	class := u.classifier.Classify(ext)
	if class == Unclassified && opts.RequireClass {
		return req, class, StoragePath{}, errorf(ErrorUnclassifiedMediaRejected, "extension %q is not a recognised media type", ext)
	}
	if len(opts.Allowed) > 0 && !containsClass(opts.Allowed, class) {
		return req, class, StoragePath{}, errorf(ErrorUnclassifiedMediaRejected, "%s media is not accepted here", class)
	}

	dir, err := layout.BuildDirectory(req.Owner, class)
	if err != nil {
		return req, class, StoragePath{}, err
	}

	name := req.Name
	if name == "" {
		base := path.Base(strings.ReplaceAll(req.OriginalFilename, "\\", "/"))
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	name, err = SanitizeName(name)
	if err != nil {
		return req, class, StoragePath{}, err
	}
	return req, class, StoragePath{Directory: dir, FileName: BuildFileName(name, ext)}, nil
}

// Upload stores req under layout. Nothing is written when planning fails.
func (u *Uploader) Upload(ctx context.Context, layout Layout, req UploadRequest, opts UploadOptions) (StoredAsset, error) {
	req, class, target, err := u.Plan(layout, req, opts)
	if err != nil {
		u.log.Debug(ctx, "upload rejected", logapi.String("layout", layout.label()),
			logapi.String("owner", req.Owner.String()), logapi.ErrorField(err))
		return StoredAsset{}, err
	}
	return u.store.Put(ctx, req, class, target, opts.Policy)
}

// CreateSupplierLogo stores the logo of a supplier that was just created.
func (u *Uploader) CreateSupplierLogo(ctx context.Context, supplierID int64, req UploadRequest) (StoredAsset, error) {
	req.Owner = OwnerChain{supplierID}
	return u.Upload(ctx, SupplierLogoLayout, req, UploadOptions{Policy: Replace, Allowed: []MediaClass{Image}})
}

// UpdateSupplierLogo reuses an identically named logo instead of rewriting it.
func (u *Uploader) UpdateSupplierLogo(ctx context.Context, supplierID int64, req UploadRequest) (StoredAsset, error) {
	req.Owner = OwnerChain{supplierID}
	return u.Upload(ctx, SupplierLogoLayout, req, UploadOptions{Policy: Skip, Allowed: []MediaClass{Image}})
}

// StoreColorPicture stores a new picture or video of a product colour.
func (u *Uploader) StoreColorPicture(ctx context.Context, productID, colorID int64, req UploadRequest) (StoredAsset, error) {
	req.Owner = OwnerChain{productID, colorID}
	return u.Upload(ctx, ProductColorLayout, req, UploadOptions{Policy: Replace, RequireClass: true})
}

// UpdateColorPicture is StoreColorPicture with skip-if-exists semantics.
func (u *Uploader) UpdateColorPicture(ctx context.Context, productID, colorID int64, req UploadRequest) (StoredAsset, error) {
	req.Owner = OwnerChain{productID, colorID}
	return u.Upload(ctx, ProductColorLayout, req, UploadOptions{Policy: Skip, RequireClass: true})
}

// RemoveAsset deletes the file behind a persisted URL. Failures are logged
// and reported as not removed so the metadata removal can go ahead.
func (u *Uploader) RemoveAsset(ctx context.Context, publicURL string) bool {
	removed, err := u.store.DeleteByURL(ctx, publicURL)
	if err != nil {
		u.log.Error(ctx, "asset removal failed, leaving file for cleanup", err, logapi.String("url", publicURL))
		return false
	}
	return removed
}

// RemoveSupplier purges every asset of a supplier. Like RemoveAsset it never
// blocks the entity deletion; the count is what was actually removed.
func (u *Uploader) RemoveSupplier(ctx context.Context, supplierID int64) int {
	removed, err := u.store.Purge(ctx, SupplierLogoLayout, OwnerChain{supplierID})
	if err != nil {
		u.log.Error(ctx, "supplier asset purge failed, leaving files for cleanup", err, logapi.Int64("supplier_id", supplierID))
	}
	return removed
}

// resolveExtension prefers the declared extension, then the original file
// name, then the payload signature.
func (u *Uploader) resolveExtension(req UploadRequest) (UploadRequest, string, error) {
	ext := NormalizeExtension(req.Extension)
	if ext == "" {
		ext = NormalizeExtension(path.Ext(req.OriginalFilename))
	}
	if ext == "" && req.Content != nil {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(req.Content, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return req, "", newError(ErrorStorageWriteFailed, "read upload", err)
		}
		head = head[:n]
		req.Content = io.MultiReader(bytes.NewReader(head), req.Content)
		ext = NormalizeExtension(mimetype.Detect(head).Extension())
	}
	if ext == "" {
		return req, "", errorf(ErrorInvalidFileName, "could not determine an extension for %q", req.OriginalFilename)
	}
	if !validExtension(ext) {
		return req, "", errorf(ErrorInvalidFileName, "extension %q is not a plain extension", ext)
	}
	return req, ext, nil
}

func containsClass(classes []MediaClass, class MediaClass) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}
