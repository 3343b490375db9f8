// Package file persists uploaded files to a storage backend.
//
// Anything implementing Source can be stored: the binder's FileUpload, a
// parsed *multipart.FileHeader (FromHeader) or an in-memory payload (FromBytes).
// Two backends implement Storage:
//
//   - LocalStorage confines every path to a base directory.
//   - S3Storage targets Amazon S3 and compatible services such as MinIO.
//
// Usage:
//
//	storage, err := file.NewLocalStorage("./uploads", "/files/")
//	if err != nil {
//	    return err
//	}
//	stored, err := storage.Save(ctx, file.FromBytes("avatar.png", data), "avatars/")
//	// stored.RelativePath == "avatars/avatar.png"
//
// Helpers sniff content rather than trusting extensions:
//
//	if err := file.ValidateMIMEType(src, "image/png", "image/jpeg"); err != nil {
//	    return err
//	}
//
// Filenames are sanitized with SanitizeFilename before they reach a backend.
package file
