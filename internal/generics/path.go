package generics

import (
	"gsubst/internal/types"
)

// PathStep is one (subject, protocol) hop of a conformance path. The first
// step is a requirement stated by the signature; every later Subject is
// written in terms of the previous protocol's Self.
type PathStep struct {
	Subject types.TypeID
	Proto   types.ProtocolID
}

// Path connects a derived conformance back to a stated requirement.
type Path []PathStep

// RequiresProtocol reports whether the signature implies t: proto.
func (s *Signature) RequiresProtocol(t types.TypeID, proto types.ProtocolID) bool {
	_, ok := s.ConformancePath(t, proto)
	return ok
}

// ConformancePath returns the shortest path deriving t: proto from the stated
// conformance requirements, walking protocol requirement signatures
// breadth-first. Results are memoized per signature.
func (s *Signature) ConformancePath(t types.TypeID, proto types.ProtocolID) (Path, bool) {
	if s == nil {
		return nil, false
	}
	key := pathKey{subject: s.in.Canonical(t), proto: proto}
	s.pathMu.Lock()
	if cached, ok := s.pathCache[key]; ok {
		s.pathMu.Unlock()
		return cached.path, cached.ok
	}
	s.pathMu.Unlock()

	path, ok := s.searchPath(key.subject, proto)

	s.pathMu.Lock()
	if s.pathCache == nil {
		s.pathCache = make(map[pathKey]pathResult, 8)
	}
	s.pathCache[key] = pathResult{path: path, ok: ok}
	s.pathMu.Unlock()
	return path, ok
}

type pathNode struct {
	subject types.TypeID
	proto   types.ProtocolID
	parent  int
	step    PathStep
}

func (s *Signature) searchPath(target types.TypeID, proto types.ProtocolID) (Path, bool) {
	if !s.in.IsTypeParameter(target) {
		return nil, false
	}
	limit := memberDepth(s.in, target)
	seen := make(map[pathKey]bool, 16)
	var queue []pathNode
	for _, r := range s.reqs {
		if r.Kind != ReqConformance {
			continue
		}
		subject := s.in.Canonical(r.Subject)
		k := pathKey{subject: subject, proto: r.Proto}
		if seen[k] || memberDepth(s.in, subject) > limit {
			continue
		}
		seen[k] = true
		queue = append(queue, pathNode{
			subject: subject,
			proto:   r.Proto,
			parent:  -1,
			step:    PathStep{Subject: subject, Proto: r.Proto},
		})
	}

	for head := 0; head < len(queue); head++ {
		node := queue[head]
		if node.subject == target && node.proto == proto {
			return s.unwind(queue, head), true
		}
		info, ok := s.in.Protocol(node.proto)
		if !ok {
			continue
		}
		for _, req := range info.Requirements {
			subject := s.in.Canonical(ReplaceSelf(s.in, req.Subject, node.subject))
			if memberDepth(s.in, subject) > limit {
				continue
			}
			k := pathKey{subject: subject, proto: req.Proto}
			if seen[k] {
				continue
			}
			seen[k] = true
			queue = append(queue, pathNode{
				subject: subject,
				proto:   req.Proto,
				parent:  head,
				step:    PathStep{Subject: req.Subject, Proto: req.Proto},
			})
		}
	}
	return nil, false
}

func (s *Signature) unwind(queue []pathNode, at int) Path {
	var rev Path
	for i := at; i >= 0; i = queue[i].parent {
		rev = append(rev, queue[i].step)
	}
	path := make(Path, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// memberDepth counts the dependent-member hops between t and its root.
func memberDepth(in *types.Interner, t types.TypeID) int {
	depth := 0
	for {
		tt, ok := in.Lookup(t)
		if !ok || tt.Kind != types.KindDependentMember {
			return depth
		}
		depth++
		t = tt.Elem
	}
}

// ReplaceSelf rewrites a type written against a protocol's Self parameter
// onto base.
func ReplaceSelf(in *types.Interner, t, base types.TypeID) types.TypeID {
	self := in.SelfParam()
	return types.Transform(in, t, func(id types.TypeID) types.TypeID {
		if id == self {
			return base
		}
		return types.NoTypeID
	}, 0)
}
