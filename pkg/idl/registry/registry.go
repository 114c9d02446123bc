// Package registry serves decoding for programs registered by address. IDLs are
// compiled once, persisted in their binary encoding and cached in memory.
package registry

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-idl/pkg/cache"
	"github.com/code-payments/code-idl/pkg/idl"
	"github.com/code-payments/code-idl/pkg/idl/parser"
	"github.com/code-payments/code-idl/pkg/idl/store"
	"github.com/code-payments/code-idl/pkg/metrics"
	"github.com/code-payments/code-idl/pkg/sync"
)

const (
	metricsStructName = "idl.registry"

	programRegisteredEventName = "IdlProgramRegistered"
	programForgottenEventName  = "IdlProgramForgotten"
)

var (
	ErrDataTooLarge = errors.New("data exceeds the maximum decodable size")
)

// Registry maps program addresses to compiled programs
type Registry struct {
	log  *logrus.Entry
	conf *conf

	store store.Store
	cache cache.Cache[*idl.Program]
	locks *sync.StripedLock
}

// New returns a registry backed by the provided store
func New(s store.Store, configProvider ConfigProvider) *Registry {
	ctx := context.Background()
	conf := configProvider()

	return &Registry{
		log:  logrus.StandardLogger().WithField("type", "idl/registry"),
		conf: conf,

		store: s,
		cache: cache.NewCache[*idl.Program](int(conf.cacheBudget.Get(ctx))),
		locks: sync.NewStripedLock(uint(conf.lockStripes.Get(ctx))),
	}
}

// Register compiles an IDL document and stores the result for address,
// replacing any program previously registered there.
func (r *Registry) Register(ctx context.Context, address string, idlJSON []byte) (*idl.Program, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Register")
	tracer.AddAttribute("address", address)
	defer tracer.End()

	program, err := r.register(ctx, address, idlJSON)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	metrics.RecordEvent(ctx, programRegisteredEventName, map[string]interface{}{
		"address":      address,
		"name":         program.Name,
		"accounts":     len(program.Accounts),
		"instructions": len(program.Instructions),
	})

	return program, nil
}

func (r *Registry) register(ctx context.Context, address string, idlJSON []byte) (*idl.Program, error) {
	log := r.log.WithContext(ctx).WithFields(logrus.Fields{
		"method":  "Register",
		"address": address,
	})

	if err := store.ValidateAddress(address); err != nil {
		return nil, err
	}

	program, err := parser.Parse(idlJSON)
	if err != nil {
		log.WithError(err).Info("failure compiling idl")
		return nil, errors.Wrap(err, "error compiling idl")
	}

	encoded, err := program.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "error encoding program")
	}

	unlock := r.locks.Lock(address)
	defer unlock()

	storeCtx, cancel := context.WithTimeout(ctx, r.conf.storeTimeout.Get(ctx))
	defer cancel()

	record := &store.Record{
		Address: address,
		Name:    program.Name,
		Data:    encoded,
	}
	if len(record.Name) == 0 {
		record.Name = address
	}

	existing, err := r.store.Get(storeCtx, address)
	switch err {
	case nil:
		record.Version = existing.Version
	case store.ErrProgramNotFound:
	default:
		log.WithError(err).Warn("failure getting existing program record")
		return nil, errors.Wrap(err, "error getting existing program record")
	}

	if err := r.store.Save(storeCtx, record); err != nil {
		log.WithError(err).Warn("failure saving program record")
		return nil, errors.Wrap(err, "error saving program record")
	}

	r.cacheProgram(address, program, len(encoded))

	log.WithFields(logrus.Fields{
		"name":    program.Name,
		"version": record.Version,
	}).Debug("program registered")

	return program, nil
}

// Get returns the program registered for address
//
// Returns store.ErrProgramNotFound if nothing is registered.
func (r *Registry) Get(ctx context.Context, address string) (*idl.Program, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Get")
	tracer.AddAttribute("address", address)
	defer tracer.End()

	program, err := r.get(ctx, address)
	if err != nil && err != store.ErrProgramNotFound {
		tracer.OnError(err)
	}
	return program, err
}

func (r *Registry) get(ctx context.Context, address string) (*idl.Program, error) {
	if program, ok := r.cache.Retrieve(address); ok {
		return program, nil
	}

	unlock := r.locks.Lock(address)
	defer unlock()

	// Another caller may have loaded it while we waited on the lock
	if program, ok := r.cache.Retrieve(address); ok {
		return program, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.conf.storeTimeout.Get(ctx))
	defer cancel()

	record, err := r.store.Get(storeCtx, address)
	if err == store.ErrProgramNotFound {
		return nil, err
	} else if err != nil {
		r.log.WithContext(ctx).WithError(err).WithField("address", address).Warn("failure getting program record")
		return nil, errors.Wrap(err, "error getting program record")
	}

	var program idl.Program
	if err := program.UnmarshalBinary(record.Data); err != nil {
		r.log.WithContext(ctx).WithError(err).WithField("address", address).Warn("failure decoding stored program")
		return nil, errors.Wrap(err, "error decoding stored program")
	}

	r.cacheProgram(address, &program, len(record.Data))
	return &program, nil
}

// Addresses returns every registered program address, in ascending order
func (r *Registry) Addresses(ctx context.Context) ([]string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Addresses")
	defer tracer.End()

	storeCtx, cancel := context.WithTimeout(ctx, r.conf.storeTimeout.Get(ctx))
	defer cancel()

	addresses, err := r.store.GetAll(storeCtx)
	if err == store.ErrProgramNotFound {
		return nil, nil
	} else if err != nil {
		tracer.OnError(err)
		r.log.WithContext(ctx).WithError(err).Warn("failure getting program addresses")
		return nil, errors.Wrap(err, "error getting program addresses")
	}

	tracer.AddAttribute("count", len(addresses))
	return addresses, nil
}

// DecodeAccount decodes account data owned by the program at address
func (r *Registry) DecodeAccount(ctx context.Context, address string, data []byte) (*idl.AccountResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "DecodeAccount")
	tracer.AddAttribute("address", address)
	defer tracer.End()

	result, err := r.decodeAccount(ctx, address, data)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	tracer.AddAttribute("account", result.Name)
	return result, nil
}

func (r *Registry) decodeAccount(ctx context.Context, address string, data []byte) (*idl.AccountResult, error) {
	if err := r.checkDataSize(ctx, data); err != nil {
		return nil, err
	}

	program, err := r.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	return program.DecodeAccount(data, r.conf.showHidden.Get(ctx))
}

// DecodeInstruction decodes instruction data for the program at address.
// accounts are the instruction's account addresses, in order, and may be nil.
func (r *Registry) DecodeInstruction(ctx context.Context, address string, data []byte, accounts []string) (*idl.InstructionResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "DecodeInstruction")
	tracer.AddAttribute("address", address)
	defer tracer.End()

	result, err := r.decodeInstruction(ctx, address, data, accounts)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	tracer.AddAttribute("instruction", result.Name)
	return result, nil
}

func (r *Registry) decodeInstruction(ctx context.Context, address string, data []byte, accounts []string) (*idl.InstructionResult, error) {
	if err := r.checkDataSize(ctx, data); err != nil {
		return nil, err
	}

	program, err := r.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	return program.DecodeInstruction(data, accounts, r.conf.showHidden.Get(ctx))
}

// Forget removes the program registered for address
//
// Returns store.ErrProgramNotFound if nothing is registered.
func (r *Registry) Forget(ctx context.Context, address string) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Forget")
	tracer.AddAttribute("address", address)
	defer tracer.End()

	unlock := r.locks.Lock(address)
	defer unlock()

	r.cache.Remove(address)

	storeCtx, cancel := context.WithTimeout(ctx, r.conf.storeTimeout.Get(ctx))
	defer cancel()

	err := r.store.Delete(storeCtx, address)
	if err == store.ErrProgramNotFound {
		return err
	} else if err != nil {
		tracer.OnError(err)
		r.log.WithContext(ctx).WithError(err).WithField("address", address).Warn("failure deleting program record")
		return errors.Wrap(err, "error deleting program record")
	}

	metrics.RecordEvent(ctx, programForgottenEventName, map[string]interface{}{
		"address": address,
	})
	return nil
}

func (r *Registry) checkDataSize(ctx context.Context, data []byte) error {
	maxDataSize := r.conf.maxDataSize.Get(ctx)
	if uint64(len(data)) > maxDataSize {
		return errors.Wrapf(ErrDataTooLarge, "%d bytes exceeds %d", len(data), maxDataSize)
	}
	return nil
}

func (r *Registry) cacheProgram(address string, program *idl.Program, weight int) {
	if err := r.cache.Insert(address, program, weight); err != nil {
		// The next Get reloads it from the store
		r.cache.Remove(address)
		r.log.WithError(err).WithFields(logrus.Fields{
			"address": address,
			"weight":  weight,
		}).Debug("program not cached")
	}
}
