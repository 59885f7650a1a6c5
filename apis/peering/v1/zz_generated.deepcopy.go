package v1

import (
	runtime "k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver into out.
func (in *ResourceRequirements) DeepCopyInto(out *ResourceRequirements) {
	*out = *in
	if in.Requests != nil {
		out.Requests = make(map[string]string, len(in.Requests))
		for k, v := range in.Requests {
			out.Requests[k] = v
		}
	}
	if in.Limits != nil {
		out.Limits = make(map[string]string, len(in.Limits))
		for k, v := range in.Limits {
			out.Limits[k] = v
		}
	}
}

// DeepCopy returns a deep copy of ResourceRequirements.
func (in *ResourceRequirements) DeepCopy() *ResourceRequirements {
	if in == nil {
		return nil
	}
	out := new(ResourceRequirements)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out.
func (in *PeeringServerSpec) DeepCopyInto(out *PeeringServerSpec) {
	*out = *in
	in.Resources.DeepCopyInto(&out.Resources)
}

// DeepCopy returns a deep copy of PeeringServerSpec.
func (in *PeeringServerSpec) DeepCopy() *PeeringServerSpec {
	if in == nil {
		return nil
	}
	out := new(PeeringServerSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out.
func (in *PeeringServerStatus) DeepCopyInto(out *PeeringServerStatus) {
	*out = *in
}

// DeepCopy returns a deep copy of PeeringServerStatus.
func (in *PeeringServerStatus) DeepCopy() *PeeringServerStatus {
	if in == nil {
		return nil
	}
	out := new(PeeringServerStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out.
func (in *PeeringServer) DeepCopyInto(out *PeeringServer) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy returns a deep copy of PeeringServer.
func (in *PeeringServer) DeepCopy() *PeeringServer {
	if in == nil {
		return nil
	}
	out := new(PeeringServer)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *PeeringServer) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver into out.
func (in *PeeringServerList) DeepCopyInto(out *PeeringServerList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		l := make([]PeeringServer, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&l[i])
		}
		out.Items = l
	}
}

// DeepCopy returns a deep copy of PeeringServerList.
func (in *PeeringServerList) DeepCopy() *PeeringServerList {
	if in == nil {
		return nil
	}
	out := new(PeeringServerList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *PeeringServerList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
