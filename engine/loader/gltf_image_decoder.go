package loader

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-viewer/common"
)

// gltfImageDecoderImpl is the implementation of the gltfImageDecoder interface.
type gltfImageDecoderImpl struct {
	parser gltfParser
	pool   worker.DynamicWorkerPool
}

// gltfImageDecoder reads every image of a parsed document and decodes it to pixels.
type gltfImageDecoder interface {
	// DecodeAll returns one decoded image per document image, in document order.
	// Encoded bytes are read sequentially; pixel decoding fans out over the worker pool
	// and is fully joined before DecodeAll returns.
	//
	// Returns:
	//   - []common.ImportedImage: the decoded images
	//   - error: the failure of the lowest-indexed image that failed
	DecodeAll() ([]common.ImportedImage, error)
}

var _ gltfImageDecoder = &gltfImageDecoderImpl{}

// newGLTFImageDecoder creates an image decoder for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - pool: worker pool used for parallel decoding, or nil to decode inline
//
// Returns:
//   - gltfImageDecoder: the image decoder
func newGLTFImageDecoder(parser gltfParser, pool worker.DynamicWorkerPool) gltfImageDecoder {
	return &gltfImageDecoderImpl{parser: parser, pool: pool}
}

func (d *gltfImageDecoderImpl) DecodeAll() ([]common.ImportedImage, error) {
	doc := d.parser.Document()
	if doc == nil {
		return nil, errNoDocumentLoaded
	}

	images := make([]common.ImportedImage, len(doc.Images))
	for i := range doc.Images {
		data, mime, err := d.parser.ReadImageData(i)
		if err != nil {
			return nil, err
		}
		images[i] = common.ImportedImage{
			Name:     cmp.Or(doc.Images[i].Name, fmt.Sprintf("image%d", i)),
			Data:     data,
			MimeType: mime,
		}
	}

	errs := make([]error, len(images))
	if d.pool == nil || len(images) < 2 {
		for i := range images {
			errs[i] = images[i].Decode()
		}
	} else {
		// WaitGroup barrier: the pool's own Wait blocks until workers idle out.
		var wg sync.WaitGroup
		wg.Add(len(images))
		for i := range images {
			d.pool.SubmitTask(worker.Task{
				ID: i,
				Do: func() (any, error) {
					defer wg.Done()
					errs[i] = images[i].Decode()
					return nil, errs[i]
				},
			})
		}
		wg.Wait()
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		images[i].Data = nil
	}
	return images, nil
}
