package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"

	"github.com/jessevdk/go-flags"
	"github.com/morikuni/aec"
	"golang.org/x/sys/unix"
	"lab47.dev/relinfo/pkg/progress"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Cmd adapts a func(context.Context, OptionsStruct) error into a
// cli.Command. The options struct is parsed with go-flags.
type Cmd struct {
	syn, name string
	f         reflect.Value

	opts   reflect.Value
	parser *flags.Parser

	// Stderr receives error reports and progress bars.
	Stderr io.Writer
}

func New(name, syn string, f interface{}) *Cmd {
	rv := reflect.ValueOf(f)

	if rv.Kind() != reflect.Func {
		panic("must pass a function")
	}

	rt := rv.Type()

	if rt.NumIn() != 2 || rt.In(0) != contextType {
		panic("must take a context and an options struct")
	}

	if rt.NumOut() != 1 {
		panic("must return one argument only")
	}

	in := rt.In(1)

	if in.Kind() != reflect.Struct {
		panic("argument must be a struct")
	}

	sv := reflect.New(in)

	parser := flags.NewNamedParser(name, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = syn
	parser.LongDescription = syn

	_, err := parser.AddGroup("Options", "", sv.Interface())
	if err != nil {
		panic(err)
	}

	return &Cmd{
		syn:    syn,
		name:   name,
		f:      rv,
		opts:   sv,
		parser: parser,
		Stderr: os.Stderr,
	}
}

func (w *Cmd) Help() string {
	var buf bytes.Buffer
	w.parser.WriteHelp(&buf)
	return buf.String()
}

func (w *Cmd) Synopsis() string {
	return w.syn
}

func (w *Cmd) Run(args []string) int {
	_, err := w.parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(w.Stderr, err)
		return 1
	}

	ctx, cancel := Context(w.Stderr)
	defer cancel()

	return w.call(ctx)
}

// Context returns a context that is cancelled on interrupt and that renders
// progress bars to progressOut.
func Context(progressOut io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	cancelOnSignal(cancel, os.Interrupt, unix.SIGQUIT, unix.SIGTERM)

	return progress.Open(ctx, progressOut), cancel
}

func (w *Cmd) call(ctx context.Context) int {
	rets := w.f.Call([]reflect.Value{reflect.ValueOf(ctx), w.opts.Elem()})

	if err, ok := rets[0].Interface().(error); ok && err != nil {
		fmt.Fprintf(w.Stderr, "%s %+v\n", aec.RedF.Apply("! Error:"), err)
		return 1
	}

	return 0
}

func cancelOnSignal(cancel func(), signals ...os.Signal) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, signals...)

	go func() {
		for range c {
			cancel()
		}
	}()
}
