/*
Package core is shared by every transport adapter in this module.

	HTTP (jwtmiddleware) / gin / echo / gRPC
	                 │
	                 ▼
	            core.Core          empty-token policy, logging, timing
	                 │
	                 ▼
	        validator.Validator    signature, alg, iss, aud, exp/nbf/iat

Adapters extract the raw token from their transport, call CheckToken and,
on success, store the returned principal with SetClaims. Handlers read it
back with GetClaims.

# Errors

CheckToken returns ErrJWTMissing for an absent token when credentials are
required. Anything the validator rejects is a *ValidationError whose Code
says why; every *ValidationError also matches ErrJWTInvalid:

	var verr *core.ValidationError
	if errors.As(err, &verr) && verr.Code == core.ErrorCodeTokenExpired {
	    // ...
	}
*/
package core
