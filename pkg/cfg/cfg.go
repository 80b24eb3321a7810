package cfg

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/kpotier/lmpdiff/pkg/diffusion"
	"github.com/kpotier/lmpdiff/pkg/msd"
	"github.com/kpotier/lmpdiff/pkg/msd/lammpstrj"

	"gopkg.in/yaml.v3"
)

// Default values of the parameters.
const (
	DefaultTimeStep     = 500
	DefaultStepInterval = 0.001
)

// DefaultColumns are the columns of x, y and z in a record (id type x y z).
var DefaultColumns = [3]int{2, 3, 4}

// Cfg is a structure containing the parameters specified in the configuration
// file or on the command line. It can be instanced through New, Default or by
// "hand". If it is instanced by hand, please use the Check method to check if
// the Cfg meets the requirements.
type Cfg struct {
	// Traj is the file containing the configurations
	Traj string `yaml:"traj"`

	// TimeStep is the number of simulation steps between two configurations
	TimeStep int `yaml:"time_step"`

	// StepInterval is the physical time of one simulation step
	StepInterval float64 `yaml:"step_interval"`

	// Divisor is applied to the slope of the MSD. 4 by default
	Divisor float64 `yaml:"divisor"`

	// Method is the method of estimation (fit or endpoint)
	Method diffusion.Method `yaml:"method"`

	// FitStart is the first configuration used by the fit
	FitStart int `yaml:"fit_start"`

	// FitEnd is the configuration after the last one used by the fit. 0 means
	// the last configuration of the trajectory
	FitEnd int `yaml:"fit_end"`

	// Columns are the columns of x, y and z in a record
	Columns [3]int `yaml:"columns"`

	// HeaderColumns specifies if the columns must be read from the ITEM: ATOMS
	// header (xu yu zu, x y z or xs ys zs)
	HeaderColumns bool `yaml:"header_columns"`

	// MSDOut is the file where the MSD is written. Nothing is written if empty
	MSDOut string `yaml:"msd_out"`

	// Verbose enables the log messages
	Verbose bool `yaml:"verbose"`
}

// Result holds everything computed during a run.
type Result struct {
	Frames    int
	Particles int
	Lines     int
	Skipped   int
	MSD       []float64
	Times     []float64
	Fit       diffusion.Fit
}

// Default returns a Cfg filled with the default values. Traj is left empty.
func Default() *Cfg {
	return &Cfg{
		TimeStep:     DefaultTimeStep,
		StepInterval: DefaultStepInterval,
		Divisor:      diffusion.DefaultDivisor,
		Method:       diffusion.MFit,
		Columns:      DefaultColumns,
	}
}

// New opens and decodes the specified configuration file on top of the
// default values. The file must be a YAML file. This method automatically
// calls the Check method to check the integrity of Cfg.
func New(path string) (*Cfg, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	err = c.Check()
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	return c, nil
}

// Load decodes the configuration file without checking it, so that values
// can still be overridden before Check is called.
func Load(path string) (*Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	r := bufio.NewReader(f)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err = dec.Decode(c)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return c, nil
}

// Check checks if Cfg is correct. It returns an error if a field doesn't meet
// the requirements.
func (c *Cfg) Check() error {
	if c.Traj == "" {
		return fmt.Errorf("the trajectory file must be specified")
	}

	for _, col := range c.Columns {
		if col < 0 {
			return fmt.Errorf("Columns cannot be lower than 0")
		}
	}

	e := c.Estimator()
	return e.Check()
}

// Estimator returns the diffusion estimator described by Cfg.
func (c *Cfg) Estimator() *diffusion.Estimator {
	return &diffusion.Estimator{
		Stride:  c.TimeStep,
		Dt:      c.StepInterval,
		Divisor: c.Divisor,
		Start:   c.FitStart,
		End:     c.FitEnd,
		Method:  c.Method,
	}
}

// Diffusion reads the trajectory, calculates the mean squared displacement
// and estimates the diffusion coefficient.
func (c *Cfg) Diffusion() (*Result, error) {
	err := c.Check()
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	var stats lammpstrj.Stats
	opts := []lammpstrj.Option{
		lammpstrj.WithColumns(c.Columns[0], c.Columns[1], c.Columns[2]),
		lammpstrj.WithStats(&stats),
	}
	if c.HeaderColumns {
		opts = append(opts, lammpstrj.WithHeaderColumns())
	}

	log.Printf("Reading trajectory `%s`\n", c.Traj)
	traj, err := lammpstrj.Read(c.Traj, opts...)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	log.Printf("%d configurations of %d particles\n", traj.Frames(), traj.Particles())

	log.Println("Calculating the mean square displacement")
	res, err := msd.Compute(traj)
	if err != nil {
		return nil, err
	}

	e := c.Estimator()
	times := e.Times(len(res))

	if c.MSDOut != "" {
		log.Printf("Writing the mean square displacement into `%s`\n", c.MSDOut)
		err = c.write(res, times)
		if err != nil {
			return nil, err
		}
	}

	log.Println("Estimating the diffusion coefficient")
	fit, err := e.Estimate(res)
	if err != nil {
		return nil, err
	}
	log.Printf("slope %g, intercept %g, R2 %g over %d configurations\n", fit.Slope, fit.Intercept, fit.R2, fit.Points)

	return &Result{
		Frames:    traj.Frames(),
		Particles: traj.Particles(),
		Lines:     stats.Lines,
		Skipped:   stats.Skipped,
		MSD:       res,
		Times:     times,
		Fit:       fit,
	}, nil
}

// write writes the results into MSDOut.
func (c *Cfg) write(res, times []float64) error {
	f, err := os.Create(c.MSDOut)
	if err != nil {
		return err
	}

	err = msd.Write(f, res, times)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
