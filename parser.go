package imgrec

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// randMagic is the PRNG seeding constant from original_source
// (`kRandMagic = 111`): worker t is seeded (t+1)*randMagic.
const randMagic = 111

// AugmenterFactory constructs the Augmenter a given worker owns for the
// lifetime of the Parser. Called once per worker at construction, never
// per chunk -- workers own their augmenter and PRNG for the whole run,
// per spec.md §5.
type AugmenterFactory func(workerID int) Augmenter

// Parser is the Parallel Parser of spec.md §4.3: it pulls chunks from a
// RecordSource and turns each into T per-worker InstanceVectors, T =
// ParserConfig.PreprocessThreads.
type Parser struct {
	cfg      ParserConfig
	source   *RecordSource
	labels   *LabelTable
	decoder  Decoder
	augs     []Augmenter
	rngs     []*rand.Rand
	threads  int
	log      Logger
}

// NewParser validates cfg, opens the archive shard, loads the label
// table (if configured), and seeds one Augmenter + PRNG per worker.
func NewParser(cfg ParserConfig, decoder Decoder, newAugmenter AugmenterFactory, log Logger) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	threads := cfg.normalize()
	if log == nil {
		log = nopLogger{}
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: decoder is required", ErrConfig)
	}
	decoder = WrapCompressed(decoder, cfg.PayloadCodec)
	if newAugmenter == nil {
		newAugmenter = func(int) Augmenter { return IdentityAugmenter{} }
	}

	var labels *LabelTable
	if cfg.PathImageList != "" {
		var err error
		labels, err = LoadLabelTable(cfg.PathImageList, cfg.LabelWidth)
		if err != nil {
			return nil, err
		}
	}

	source, err := OpenRecordSource(cfg.PathImageRec, cfg.PartIndex, cfg.NumParts, cfg.ChunkHintBytes, log)
	if err != nil {
		return nil, err
	}

	augs := make([]Augmenter, threads)
	rngs := make([]*rand.Rand, threads)
	for t := 0; t < threads; t++ {
		augs[t] = newAugmenter(t)
		rngs[t] = rand.New(rand.NewSource(int64((t + 1) * randMagic)))
	}

	if cfg.Verbose {
		log.Info("ImageRecordIOParser: %s, use %d threads for decoding..", cfg.PathImageRec, threads)
	}

	return &Parser{
		cfg:     cfg,
		source:  source,
		labels:  labels,
		decoder: decoder,
		augs:    augs,
		rngs:    rngs,
		threads: threads,
		log:     log,
	}, nil
}

// BeforeFirst rewinds the underlying source to the start of its shard.
// Worker PRNG state is NOT reset -- the parser's per-worker PRNGs keep
// advancing, matching original_source (the augmenters' RNGs are never
// reseeded by BeforeFirst). The Iterator Surface's BeforeFirst does not
// reseed its shuffle RNG either.
func (p *Parser) BeforeFirst() {
	p.source.BeforeFirst()
}

// Close releases the underlying archive handle.
func (p *Parser) Close() error {
	return p.source.Close()
}

// ParseNext parses the next chunk into slot, resizing/reusing its
// worker vectors, and reports whether a chunk was available. Workers
// run concurrently via errgroup.Group and are joined at chunk end
// (spec.md §5's "threads are joined at chunk boundaries"), grounded on
// mknyszek-goat's shard-indexing fan-out and dannystaple-mimir's
// bucketChunkReader.load.
func (p *Parser) ParseNext(slot *Slot) (bool, error) {
	chunk, err := p.source.NextChunk()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	slot.reset(p.threads)

	var g errgroup.Group
	for t := 0; t < p.threads; t++ {
		t := t
		g.Go(func() error {
			return p.parseWorker(t, chunk, &slot.Workers[t])
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Parser) parseWorker(t int, chunk *Chunk, out *InstanceVector) error {
	frames := chunk.recordsForWorker(t, p.threads)
	aug := p.augs[t]
	rng := p.rngs[t]

	for _, frame := range frames {
		decoded, err := p.decoder.Decode(frame.compressed)
		if err != nil {
			return fmt.Errorf("record %d: %w", frame.imageIndex, err)
		}
		decoded, err = aug.Process(decoded, rng)
		if err != nil {
			return fmt.Errorf("record %d: augmenting: %w", frame.imageIndex, err)
		}
		if decoded.Channels != 1 && decoded.Channels != 3 {
			return fmt.Errorf("%w: record %d: unsupported channel count %d", ErrDecode, frame.imageIndex, decoded.Channels)
		}

		inst := out.grow()
		inst.Index = frame.imageIndex
		inst.Image.resize(decoded.Channels, decoded.Height, decoded.Width)
		copyPlanar(&inst.Image, decoded)

		if p.labels != nil {
			label, err := p.labels.Find(frame.imageIndex)
			if err != nil {
				return err
			}
			inst.Label = append(inst.Label[:0], label...)
		} else {
			if cap(inst.Label) < 1 {
				inst.Label = make([]float32, 1)
			} else {
				inst.Label = inst.Label[:1]
			}
			inst.Label[0] = frame.headerLabel
		}
	}
	return nil
}

// copyPlanar copies a decoded HWC image into a planar tensor, reordering
// BGR -> RGB for 3-channel images and passing grayscale through
// unchanged. original_source has this as two near-identical branches
// (one under "3 channels", a dead duplicate after it for anything
// else); SPEC_FULL collapses that to the single grayscale path below.
func copyPlanar(dst *Tensor, src DecodedImage) {
	h, w := src.Height, src.Width
	switch src.Channels {
	case 3:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := (y*w + x) * 3
				b, g, r := src.Pix[o], src.Pix[o+1], src.Pix[o+2]
				dst.Set(0, y, x, float32(r))
				dst.Set(1, y, x, float32(g))
				dst.Set(2, y, x, float32(b))
			}
		}
	case 1:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(0, y, x, float32(src.Pix[y*w+x]))
			}
		}
	}
}
