package renderer

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/assets/formats"
)

// TextureWrite records one WriteTexture call on a HeadlessDevice.
type TextureWrite struct {
	Texture GPUTexture
	Region  TextureRegion
	Layout  TextureDataLayout
	Size    int
}

type headlessTexture struct {
	desc  TextureDescriptor
	views int
}

/**
 * @brief A Device that keeps everything in memory. Submissions complete
 * immediately unless manual completion is enabled, in which case Complete
 * advances them.
 */
type HeadlessDevice struct {
	mu sync.Mutex

	nextID    uint64
	buffers   map[GPUBuffer]int
	textures  map[GPUTexture]*headlessTexture
	views     map[GPUTextureView]ViewDimension
	bindings  map[GPUBindGroup]MaterialBindingDescriptor
	writes    []TextureWrite
	draws     []DrawCommand
	frames    uint64
	submitted uint64
	completed uint64
	manual    bool
	inFrame   bool

	// Fail, when set, is consulted before every create call; a non-nil
	// error is returned to the caller.
	Fail func(op string) error
}

func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{
		buffers:  make(map[GPUBuffer]int),
		textures: make(map[GPUTexture]*headlessTexture),
		views:    make(map[GPUTextureView]ViewDimension),
		bindings: make(map[GPUBindGroup]MaterialBindingDescriptor),
	}
}

// SetManualCompletion stops submissions from completing on their own.
func (d *HeadlessDevice) SetManualCompletion(manual bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manual = manual
}

// Complete marks every submission up to n as finished.
func (d *HeadlessDevice) Complete(n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n > d.submitted {
		n = d.submitted
	}
	if n > d.completed {
		d.completed = n
	}
}

func (d *HeadlessDevice) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *HeadlessDevice) fail(op string) error {
	if d.Fail == nil {
		return nil
	}
	return d.Fail(op)
}

func (d *HeadlessDevice) CreateBuffer(desc BufferDescriptor) (GPUBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("buffer"); err != nil {
		return 0, err
	}
	b := GPUBuffer(d.id())
	d.buffers[b] = len(desc.Contents)
	return b, nil
}

func (d *HeadlessDevice) DestroyBuffer(buffer GPUBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buffer)
}

func (d *HeadlessDevice) CreateTexture(desc TextureDescriptor) (GPUTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("texture"); err != nil {
		return 0, err
	}
	if desc.Width == 0 || desc.Height == 0 || desc.Layers == 0 || desc.Mips == 0 {
		return 0, fmt.Errorf("texture %q: empty extent %dx%d, %d layers, %d mips",
			desc.Label, desc.Width, desc.Height, desc.Layers, desc.Mips)
	}
	t := GPUTexture(d.id())
	d.textures[t] = &headlessTexture{desc: desc}
	return t, nil
}

func (d *HeadlessDevice) WriteTexture(texture GPUTexture, region TextureRegion, data []byte, layout TextureDataLayout) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[texture]
	if !ok {
		return fmt.Errorf("write to unknown texture %d", texture)
	}
	if region.Mip >= t.desc.Mips || region.Layer >= t.desc.Layers {
		return fmt.Errorf("write to mip %d layer %d of a %d-mip %d-layer texture",
			region.Mip, region.Layer, t.desc.Mips, t.desc.Layers)
	}
	if layout.BytesPerRow%COPY_BYTES_PER_ROW_ALIGNMENT != 0 {
		return fmt.Errorf("bytes per row %d is not a multiple of %d", layout.BytesPerRow, COPY_BYTES_PER_ROW_ALIGNMENT)
	}
	if want := int(layout.BytesPerRow * layout.RowsPerImage); len(data) < want {
		return fmt.Errorf("write of %d bytes, layout needs %d", len(data), want)
	}
	d.writes = append(d.writes, TextureWrite{Texture: texture, Region: region, Layout: layout, Size: len(data)})
	return nil
}

func (d *HeadlessDevice) CreateTextureView(texture GPUTexture, dimension ViewDimension) (GPUTextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[texture]
	if !ok {
		return 0, fmt.Errorf("view of unknown texture %d", texture)
	}
	if dimension == VIEW_DIMENSION_CUBE && t.desc.Layers != 6 {
		return 0, fmt.Errorf("cube view of a %d-layer texture", t.desc.Layers)
	}
	t.views++
	v := GPUTextureView(d.id())
	d.views[v] = dimension
	return v, nil
}

func (d *HeadlessDevice) DestroyTexture(texture GPUTexture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, texture)
}

func (d *HeadlessDevice) CreateMaterialBinding(desc MaterialBindingDescriptor) (GPUBindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail("material"); err != nil {
		return 0, err
	}
	for slot, v := range desc.Views {
		if v == 0 {
			continue
		}
		if _, ok := d.views[v]; !ok {
			return 0, fmt.Errorf("material %q: unknown view %d in slot %s", desc.Label, v, formats.TextureSlot(slot))
		}
	}
	g := GPUBindGroup(d.id())
	d.bindings[g] = desc
	return g, nil
}

func (d *HeadlessDevice) DestroyBindGroup(group GPUBindGroup) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindings, group)
}

func (d *HeadlessDevice) Submit() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted++
	if !d.manual {
		d.completed = d.submitted
	}
	return d.submitted
}

func (d *HeadlessDevice) CompletedSubmission() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

func (d *HeadlessDevice) BeginFrame(deltaTime float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFrame {
		return fmt.Errorf("BeginFrame called twice")
	}
	d.inFrame = true
	d.draws = d.draws[:0]
	return nil
}

func (d *HeadlessDevice) Draw(cmd DrawCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, cmd)
}

func (d *HeadlessDevice) EndFrame(deltaTime float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inFrame {
		return fmt.Errorf("EndFrame without BeginFrame")
	}
	d.inFrame = false
	d.frames++
	return nil
}

// Writes returns a copy of every texture write so far.
func (d *HeadlessDevice) Writes() []TextureWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]TextureWrite(nil), d.writes...)
}

// Draws returns the draw commands of the current or last frame.
func (d *HeadlessDevice) Draws() []DrawCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DrawCommand(nil), d.draws...)
}

func (d *HeadlessDevice) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

func (d *HeadlessDevice) Binding(group GPUBindGroup) (MaterialBindingDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[group]
	return b, ok
}

func (d *HeadlessDevice) ViewDimension(view GPUTextureView) (ViewDimension, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.views[view]
	return v, ok
}

// Live reports how many buffers, textures and bind groups exist.
func (d *HeadlessDevice) Live() (buffers, textures, bindings int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers), len(d.textures), len(d.bindings)
}
