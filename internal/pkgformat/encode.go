package pkgformat

// Encode serializes f back to bytes. Decode(Encode(f)) reproduces f
// field-for-field for any well-formed File (spec §8 "Package round-trip").
func Encode(f *File) []byte {
	w := NewWriter()

	w.Raw(Magic[:])
	w.Uint16(FormatVersionMajor)
	w.Uint16(FormatVersionMinor)

	w.Uint32(f.Flags)
	w.Count(f.NameRef)
	for _, v := range f.Version {
		w.Uint16(v)
	}

	w.Count(len(f.Deps))
	for _, d := range f.Deps {
		w.Count(d.NameRef)
		for _, v := range d.MinVersion {
			w.Uint16(v)
		}
		for _, v := range d.MaxVersion {
			w.Uint16(v)
		}
		w.Count(d.NumExternGlobals)
		w.Count(d.NumExternFunctions)
		w.Count(d.NumExternClasses)
		for _, nr := range d.ExternGlobalNameRefs {
			w.Count(nr)
		}
		for _, nr := range d.ExternFunctionNameRefs {
			w.Count(nr)
		}
		for _, nr := range d.ExternClassNameRefs {
			w.Count(nr)
		}
	}

	w.Count(len(f.Strings))
	for _, s := range f.Strings {
		w.String(s)
	}

	w.Count(len(f.Names))
	for _, n := range f.Names {
		w.Count(len(n))
		for _, c := range n {
			w.Count(c)
		}
	}

	encodeGlobals(w, f.Globals)
	encodeFunctions(w, f.Functions)
	encodeClasses(w, f.Classes)
	encodeTypeParams(w, f.TypeParams)
	encodeTypes(w, f.Types)

	w.Varint(int64(f.EntryFunction))

	return w.Bytes()
}

func encodeRefList(w *Writer, refs []Ref) {
	w.Count(len(refs))
	for _, r := range refs {
		w.Count(r)
	}
}

func encodeOptionalRef(w *Writer, r Ref) {
	w.Varint(int64(r))
}

func encodeGlobals(w *Writer, gs []Global) {
	w.Count(len(gs))
	for _, g := range gs {
		var flags uint32
		if g.Public {
			flags |= 1
		}
		if g.Constant {
			flags |= 2
		}
		w.Uint32(flags)
		w.Count(g.NameRef)
		encodeOptionalRef(w, g.TypeRef)
	}
}

func encodeFunctions(w *Writer, fns []Function) {
	w.Count(len(fns))
	for _, fn := range fns {
		w.Uint32(fn.Flags)
		w.Count(fn.BuiltinID)
		w.Count(fn.NameRef)
		encodeOptionalRef(w, fn.SourceNameRef)
		encodeRefList(w, fn.TypeParamRef)
		encodeRefList(w, fn.TypeRefs)
		w.Varint(fn.LocalsSize)
		w.Count(len(fn.Instructions))
		w.Raw(fn.Instructions)
		w.Count(len(fn.BlockOffsets))
		for _, o := range fn.BlockOffsets {
			w.Varint(o)
		}
		encodeOptionalRef(w, fn.Overrides)
		if fn.Overrides >= 0 {
			encodeOptionalRef(w, fn.OverridesDepRef)
		}
		encodeRefList(w, fn.InstTypeRefs)
	}
}

func encodeClasses(w *Writer, cs []Class) {
	w.Count(len(cs))
	for _, c := range cs {
		w.Uint32(c.Flags)
		w.Count(c.NameRef)
		encodeRefList(w, c.TypeParamRef)
		encodeOptionalRef(w, c.SupertypeRef)
		w.Count(len(c.Fields))
		for _, fl := range c.Fields {
			w.Count(fl.NameRef)
			w.Count(fl.TypeRef)
			var fflags byte
			if fl.Const {
				fflags |= 1
			}
			if fl.Public {
				fflags |= 2
			}
			w.Byte(fflags)
		}
		encodeRefList(w, c.Constructors)
		encodeRefList(w, c.Methods)
		encodeOptionalRef(w, c.ElemTypeRef)
		w.Varint(int64(c.LengthField))
	}
}

func encodeTypeParams(w *Writer, tps []TypeParam) {
	w.Count(len(tps))
	for _, tp := range tps {
		w.Count(tp.NameRef)
		encodeOptionalRef(w, tp.UpperBound)
	}
}

func encodeTypes(w *Writer, ts []TypeNode) {
	w.Count(len(ts))
	for _, t := range ts {
		w.Byte(t.Kind)
		switch t.Kind {
		case TKObject:
			encodeOptionalRef(w, t.ClassDepRef)
			w.Count(t.ClassRef)
			encodeRefList(w, t.ArgRefs)
		case TKVariable:
			w.Count(t.ParamRef)
		}
	}
}
